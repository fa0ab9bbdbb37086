package httpadapter

import (
	"net/http"

	"github.com/planscale/takeoff-engine/internal/core/domain"
)

func mapErrorToHTTPStatus(err error) int {
	switch {
	case domain.IsKind(err, domain.ErrParse):
		return http.StatusBadRequest
	case domain.IsKind(err, domain.ErrValidation):
		return http.StatusBadRequest
	case domain.IsKind(err, domain.ErrNotFound):
		return http.StatusNotFound
	case domain.IsKind(err, domain.ErrCycle):
		return http.StatusConflict
	case domain.IsKind(err, domain.ErrCancelled):
		return http.StatusConflict
	case domain.IsKind(err, domain.ErrTemporary):
		return http.StatusServiceUnavailable
	case domain.IsKind(err, domain.ErrDetection):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

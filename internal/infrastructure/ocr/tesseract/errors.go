// Package tesseract reads scale-annotation text from drawing regions.
// OCR needs the tesseract build tag and the libtesseract C library;
// without it ReadText reports ErrUnavailable and callers fall back to
// manual calibration.
package tesseract

import "errors"

// ErrUnavailable is returned when the binary was built without the
// tesseract build tag.
var ErrUnavailable = errors.New("ocr support not built in")

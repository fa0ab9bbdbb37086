package ollama

func buildDetectionPrompt() string {
	return `You are analyzing a construction drawing page.

The first image is the full drawing page. The second image is a template
symbol cropped from that page (for example a light fixture, receptacle,
door tag, or plumbing fixture).

Find every occurrence of the template symbol on the page, including
rotated or slightly scaled instances. Ignore the region the template was
cropped from only if it does not contain the symbol itself.

Respond with a single JSON object and nothing else:
{"detections":[{"x":<left px>,"y":<top px>,"width":<px>,"height":<px>,"confidence":<0..1>}]}

Coordinates are pixels in the page image with the origin at the top-left
corner. Report confidence honestly; use values below 0.5 for doubtful
matches. If there are no occurrences return {"detections":[]}.`
}

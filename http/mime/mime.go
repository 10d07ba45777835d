package mime

type MIME = string

const (
	// Empty is what responses with no body at all carry.
	Empty       MIME = "application/x-empty"
	Plain       MIME = "text/plain"
	HTML        MIME = "text/html"
	JSON        MIME = "text/json"
	OctetStream MIME = "application/octet-stream"
)

package status

type HTTPError struct {
	Message string
	Code    Code
}

func NewError(code Code, message string) error {
	return HTTPError{
		Code:    code,
		Message: message,
	}
}

func (h HTTPError) Error() string {
	return h.Message
}

var (
	ErrBadRequest           = NewError(BadRequest, "bad request")
	ErrTooLongRequestLine   = NewError(RequestURITooLong, "request line is too long")
	ErrMethodNotImplemented = NewError(NotImplemented, "request method is not supported")
	ErrUnsupportedProtocol  = NewError(HTTPVersionNotSupported, "protocol is not supported")
	ErrTooManyHeaders       = NewError(RequestHeaderFieldsTooLarge, "too many headers")
	ErrHeaderFieldsTooLarge = NewError(RequestHeaderFieldsTooLarge, "too large headers section")
	ErrBodyTooLarge         = NewError(RequestEntityTooLarge, "request body is too large")
	ErrBadChunk             = NewError(BadRequest, "malformed chunk-encoded data")
	ErrNotFound             = NewError(NotFound, "not found")
	ErrInternalServerError  = NewError(InternalServerError, "internal server error")
	ErrCloseConnection      = NewError(BadRequest, "actively closing the connection")
)

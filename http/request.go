package http

import (
	"net"

	"github.com/emberhttp/ember/http/method"
	"github.com/emberhttp/ember/http/proto"
	"github.com/emberhttp/ember/kv"
)

type (
	Headers = *kv.Storage
	Header  = kv.Pair
)

// ParseState tags how far the in-flight request has been assembled. It mirrors
// the lifecycle of the wire parser: a request slot is Idle until the first byte
// of a new message arrives, and returns to Idle when the slot is reused for the
// next message on the same connection.
type ParseState uint8

const (
	Idle ParseState = iota
	OnMessageBegin
	OnHeaders
	OnBody
	OnMessageComplete
)

func (s ParseState) String() string {
	lut := [...]string{
		Idle:              "Idle",
		OnMessageBegin:    "OnMessageBegin",
		OnHeaders:         "OnHeaders",
		OnBody:            "OnBody",
		OnMessageComplete: "OnMessageComplete",
	}
	if int(s) >= len(lut) {
		return ""
	}

	return lut[s]
}

// Request represents a single parsed HTTP request. It is owned by its connection
// and is handed to application code by reference only for the duration of the
// handling call; it must not be retained past that call.
type Request struct {
	// Method is an enum representing the request method.
	Method method.Method
	// Path is the raw request target as it appeared on the request line.
	Path string
	// Proto is the protocol version the request was made with.
	Proto proto.Proto
	// Headers hold non-normalized header pairs, even though lookup is
	// case-insensitive. Duplicates are preserved; the documented combining rule
	// is kv.Storage.Joined (comma-join per RFC 7230, section 3.2.2).
	Headers Headers
	// Body contains the message body bytes accumulated so far. For chunk-encoded
	// requests the chunk framing is already stripped.
	Body []byte
	// ContentLength holds the Content-Length header value, 0 if absent.
	ContentLength int
	// Upgrade holds the Upgrade header value (the requested protocol token).
	// Empty unless an upgrade was requested.
	Upgrade string
	// Chunked reports whether the body arrived chunk-encoded.
	Chunked bool
	// Remote holds the peer address.
	Remote net.Addr
	// State tags the parsing progress of this request slot.
	State ParseState
}

func NewRequest(headers *kv.Storage, remote net.Addr) *Request {
	return &Request{
		Method:  method.Unknown,
		Proto:   proto.HTTP11,
		Headers: headers,
		Remote:  remote,
		State:   Idle,
	}
}

// Reset brings the request slot back to Idle so the connection can parse the
// next message into it.
func (r *Request) Reset() {
	r.Method = method.Unknown
	r.Path = ""
	r.Proto = proto.HTTP11
	r.Headers.Clear()
	r.Body = r.Body[:0]
	r.ContentLength = 0
	r.Upgrade = ""
	r.Chunked = false
	r.State = Idle
}

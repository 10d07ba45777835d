package http

import (
	"io"
	"log"
	"os"
	"strconv"

	"github.com/emberhttp/ember/http/mime"
	"github.com/emberhttp/ember/http/proto"
	"github.com/emberhttp/ember/http/status"
	"github.com/emberhttp/ember/internal/transfer"
	"github.com/emberhttp/ember/kv"
	"github.com/emberhttp/ember/transport"
	json "github.com/json-iterator/go"
)

const (
	contentType      = "Content-Type: "
	contentLength    = "Content-Length: "
	transferEncoding = "Transfer-Encoding: "
	crlf             = "\r\n"
	colonsp          = ": "
)

var chunkedFinalizer = []byte("0\r\n\r\n")

// Responder produces exactly one HTTP response onto the connection it borrows.
// The connection must outlive it. Headers may be accumulated freely until the
// status line is emitted; the status line is emitted exactly once as the first
// step of any write.
type Responder struct {
	client      transport.Client
	proto       proto.Proto
	buff        []byte
	headers     []kv.Pair
	transferCap int
	wroteStatus bool
	responded   bool
	pending     *transfer.Transfer
}

// NewResponder binds a responder to the client. The response is serialized
// into buff before being queued in a single write; transferCap bounds the
// buffer of a streamed body, should one be sent.
func NewResponder(client transport.Client, protocol proto.Proto, buff []byte, transferCap int) *Responder {
	return &Responder{
		client:      client,
		proto:       protocol,
		buff:        buff[:0],
		transferCap: transferCap,
	}
}

// AddHeader appends a header pair to be sent. Every call appends a distinct
// header line, duplicates are allowed per multi-valued header semantics. It
// reports false once the status line is already emitted, as no header can make
// it onto the wire anymore.
func (r *Responder) AddHeader(key, value string) bool {
	if r.wroteStatus {
		return false
	}

	r.headers = append(r.headers, kv.Pair{Key: key, Value: value})

	return true
}

// WriteStatusLine emits "HTTP/{major}.{minor} {code} {reason}\r\n" with the
// canonical reason phrase. Only the first call has effect.
func (r *Responder) WriteStatusLine(code status.Code) {
	if r.wroteStatus {
		return
	}

	r.wroteStatus = true
	r.buff = append(r.buff, r.proto.String()...)
	r.buff = strconv.AppendInt(r.buff, int64(code), 10)
	r.buff = append(r.buff, ' ')
	r.buff = append(r.buff, status.Text(code)...)
	r.buff = append(r.buff, crlf...)
}

// WriteHeaders serializes all accumulated headers, one "{key}: {value}\r\n"
// line per pair, in insertion order.
func (r *Responder) WriteHeaders() {
	for _, header := range r.headers {
		r.buff = append(r.buff, header.Key...)
		r.buff = append(r.buff, colonsp...)
		r.buff = append(r.buff, header.Value...)
		r.buff = append(r.buff, crlf...)
	}
}

// Write responds with the full body at once: status line, Content-Type and
// Content-Length, accumulated headers, the blank line and the body are queued
// in a single socket write.
func (r *Responder) Write(body []byte, mimeType mime.MIME, code status.Code) {
	if r.responded {
		return
	}
	r.responded = true

	r.WriteStatusLine(code)
	r.renderKnownHeader(contentType, mimeType)
	r.buff = strconv.AppendInt(append(r.buff, contentLength...), int64(len(body)), 10)
	r.buff = append(r.buff, crlf...)
	r.WriteHeaders()
	r.buff = append(r.buff, crlf...)
	r.buff = append(r.buff, body...)
	r.flush()
}

// WriteStatus responds with an empty body of the application/x-empty MIME.
func (r *Responder) WriteStatus(code status.Code) {
	r.Write(nil, mime.Empty, code)
}

// WriteJSON encodes v and responds with it. An encoding failure is substituted
// with a 500 response.
func (r *Responder) WriteJSON(v any, code status.Code) {
	body, err := json.Marshal(v)
	if err != nil {
		log.Printf("ember: cannot encode response body: %v", err)
		r.WriteStatus(status.InternalServerError)
		return
	}

	r.Write(body, mime.JSON, code)
}

// WriteStream responds with a body read from src, which the responder takes
// ownership of. Pass the stream size if it is known: it is emitted as
// Content-Length and the body is pumped as-is. A negative size means the
// stream is sequential (unbounded or unknown length), in which case the body
// is sent with chunked transfer encoding framing. A nil src is substituted
// with a 500 response.
//
// The head of the response is queued immediately; the body transfer keeps
// running after WriteStream returns, moving bytes whenever both sides are
// ready, until the source is exhausted.
func (r *Responder) WriteStream(src io.ReadCloser, size int, mimeType mime.MIME, code status.Code) {
	if r.responded {
		if src != nil {
			_ = src.Close()
		}
		return
	}

	if src == nil {
		log.Printf("ember: 500: the body stream cannot be read")
		r.WriteStatus(status.InternalServerError)
		return
	}

	r.responded = true
	chunked := size < 0

	r.WriteStatusLine(code)
	r.renderKnownHeader(contentType, mimeType)
	if chunked {
		r.renderKnownHeader(transferEncoding, "chunked")
	} else {
		r.buff = strconv.AppendInt(append(r.buff, contentLength...), int64(size), 10)
		r.buff = append(r.buff, crlf...)
	}
	r.WriteHeaders()
	r.buff = append(r.buff, crlf...)
	r.flush()

	if size == 0 {
		// the stream is known to hold nothing: the head alone is the whole
		// response, no transfer is spawned
		_ = src.Close()
		return
	}

	var sink transfer.Sink = plainSink{r.client}
	if chunked {
		sink = &chunkedSink{client: r.client}
	}

	t := transfer.New(src, sink, make([]byte, r.transferCap))
	t.OnDone(func(err error) {
		if err == nil && chunked {
			if err := r.client.Write(chunkedFinalizer); err != nil {
				log.Printf("ember: cannot write to socket: %v", err)
			}
		}
	})
	r.pending = t
}

// WriteFile responds with the contents of the file. A file which cannot be
// opened or measured is substituted with a 500 response, never a crash.
func (r *Responder) WriteFile(path string, mimeType mime.MIME, code status.Code) {
	fd, err := os.Open(path)
	if err != nil {
		log.Printf("ember: 500: cannot open %s: %v", path, err)
		r.WriteStatus(status.InternalServerError)
		return
	}

	stat, err := fd.Stat()
	if err != nil || stat.IsDir() {
		_ = fd.Close()
		log.Printf("ember: 500: cannot read %s", path)
		r.WriteStatus(status.InternalServerError)
		return
	}

	r.WriteStream(fd, int(stat.Size()), mimeType, code)
}

// Pending returns the in-flight body transfer, if the response body is
// streamed and hasn't been fully pumped yet.
func (r *Responder) Pending() *transfer.Transfer {
	return r.pending
}

// Flush queues everything serialized so far onto the socket. The terminal
// Write methods flush on their own; only a response composed via the granular
// WriteStatusLine/WriteHeaders path has anything left to flush.
func (r *Responder) Flush() {
	if len(r.buff) == 0 {
		return
	}

	r.flush()
}

func (r *Responder) renderKnownHeader(key, value string) {
	r.buff = append(r.buff, key...)
	r.buff = append(r.buff, value...)
	r.buff = append(r.buff, crlf...)
}

func (r *Responder) flush() {
	if err := r.client.Write(r.buff); err != nil {
		log.Printf("ember: cannot write to socket: %v", err)
	}

	r.buff = r.buff[:0]
}

// plainSink queues body bytes onto the connection as-is.
type plainSink struct {
	client transport.Client
}

func (p plainSink) Write(b []byte) (int, error) {
	if err := p.client.Write(b); err != nil {
		return 0, err
	}

	return len(b), nil
}

// chunkedSink wraps every pumped chunk into chunked transfer encoding framing:
// the chunk length in hex, CRLF, the chunk itself and a closing CRLF, queued
// as a single write.
type chunkedSink struct {
	client transport.Client
	frame  []byte
}

func (c *chunkedSink) Write(b []byte) (int, error) {
	c.frame = strconv.AppendUint(c.frame[:0], uint64(len(b)), 16)
	c.frame = append(c.frame, crlf...)
	c.frame = append(c.frame, b...)
	c.frame = append(c.frame, crlf...)

	if err := c.client.Write(c.frame); err != nil {
		return 0, err
	}

	return len(b), nil
}

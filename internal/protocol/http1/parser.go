package http1

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/emberhttp/ember/config"
	"github.com/emberhttp/ember/http"
	"github.com/emberhttp/ember/http/method"
	"github.com/emberhttp/ember/http/proto"
	"github.com/emberhttp/ember/http/status"
	"github.com/indigo-web/chunkedbody"
	"github.com/indigo-web/utils/buffer"
	"github.com/indigo-web/utils/strcomp"
	"github.com/indigo-web/utils/uf"
)

type parserState uint8

const (
	eMethod parserState = iota + 1
	ePath
	eHeaderKey
	eContentLength
	eContentLengthCR
	eHeaderValue
	eHeaderValueCRLFCR
	eBody
	eChunkedBody
)

// Parser is a streaming HTTP/1.x requests parser. It is driven by arbitrarily
// sized chunks of raw socket bytes and modifies the request object by pointer.
// Partial tokens are carried over between calls in the segment buffers, so no
// byte has to arrive twice. When the message is parsed completely, leftover
// bytes are returned as extra.
type Parser struct {
	request       *http.Request
	startLineBuff *buffer.Buffer
	headerKeyBuff *buffer.Buffer
	headerValBuff *buffer.Buffer
	chunkedParser *chunkedbody.Parser
	cfg           *config.Config
	headerKey     string
	headersNumber int
	contentLength int
	bodyLeft      int
	state         parserState
}

func NewParser(
	cfg *config.Config, request *http.Request,
	keyBuff, valBuff, startLineBuff *buffer.Buffer,
	chunkedParser *chunkedbody.Parser,
) *Parser {
	return &Parser{
		state:         eMethod,
		request:       request,
		cfg:           cfg,
		startLineBuff: startLineBuff,
		headerKeyBuff: keyBuff,
		headerValBuff: valBuff,
		chunkedParser: chunkedParser,
	}
}

// Parse consumes the next portion of raw bytes and advances the state machine.
// It reports done=true when the message is complete, handing back the bytes
// which belong to the next one via extra. A non-nil err is fatal for the whole
// connection: no further reads may be attempted after it.
func (p *Parser) Parse(data []byte) (done bool, extra []byte, err error) {
	request := p.request
	headerKeyBuff := p.headerKeyBuff
	headerValBuff := p.headerValBuff

	if request.State == http.Idle && len(data) > 0 {
		request.State = http.OnMessageBegin
	}

	switch p.state {
	case eMethod:
		goto method
	case ePath:
		goto path
	case eHeaderKey:
		goto headerKey
	case eContentLength:
		goto contentLength
	case eContentLengthCR:
		goto contentLengthCR
	case eHeaderValue:
		goto headerValue
	case eHeaderValueCRLFCR:
		goto headerValueCRLFCR
	case eBody:
		goto body
	case eChunkedBody:
		goto chunkedBody
	default:
		panic(fmt.Sprintf("BUG: unexpected state: %v", p.state))
	}

method:
	{
		sp := bytes.IndexByte(data, ' ')
		if sp == -1 {
			if !p.startLineBuff.Append(data) {
				return true, nil, status.ErrTooLongRequestLine
			}

			return false, nil, nil
		}

		var methodValue []byte
		if p.startLineBuff.SegmentLength() == 0 {
			methodValue = data[:sp]
		} else {
			if !p.startLineBuff.Append(data[:sp]) {
				return true, nil, status.ErrTooLongRequestLine
			}

			methodValue = p.startLineBuff.Finish()
		}

		if len(methodValue) == 0 {
			return true, nil, status.ErrBadRequest
		}

		request.Method = method.Parse(uf.B2S(methodValue))
		if request.Method == method.Unknown {
			return true, nil, status.ErrMethodNotImplemented
		}

		data = data[sp+1:]
		p.state = ePath
		goto path
	}

path:
	{
		lf := bytes.IndexByte(data, '\n')
		if lf == -1 {
			if !p.startLineBuff.Append(data) {
				return true, nil, status.ErrTooLongRequestLine
			}

			return false, nil, nil
		}

		if !p.startLineBuff.Append(data[:lf]) {
			return true, nil, status.ErrTooLongRequestLine
		}

		pathAndProto := p.startLineBuff.Finish()
		sp := bytes.LastIndexByte(pathAndProto, ' ')
		if sp == -1 {
			return true, nil, status.ErrBadRequest
		}

		reqPath, reqProto := pathAndProto[:sp], pathAndProto[sp+1:]
		if len(reqProto) > 0 && reqProto[len(reqProto)-1] == '\r' {
			reqProto = reqProto[:len(reqProto)-1]
		}

		if len(reqPath) == 0 {
			return true, nil, status.ErrBadRequest
		}

		request.Path = uf.B2S(reqPath)
		request.Proto = proto.FromBytes(reqProto)
		if request.Proto == proto.Unknown {
			return true, nil, status.ErrUnsupportedProtocol
		}

		request.State = http.OnHeaders
		data = data[lf+1:]
		p.state = eHeaderKey
		goto headerKey
	}

headerKey:
	{
		if len(data) == 0 {
			return false, nil, nil
		}

		switch data[0] {
		case '\n':
			return p.headersCompleted(data[1:])
		case '\r':
			data = data[1:]
			p.state = eHeaderValueCRLFCR
			goto headerValueCRLFCR
		}

		colon := bytes.IndexByte(data, ':')
		if colon == -1 {
			if !headerKeyBuff.Append(data) {
				return true, nil, status.ErrHeaderFieldsTooLarge
			}

			return false, nil, nil
		}

		if !headerKeyBuff.Append(data[:colon]) {
			return true, nil, status.ErrHeaderFieldsTooLarge
		}

		p.headerKey = uf.B2S(headerKeyBuff.Finish())
		data = data[colon+1:]

		if p.headersNumber++; p.headersNumber > p.cfg.Headers.Number.Maximal {
			return true, nil, status.ErrTooManyHeaders
		}

		if strcomp.EqualFold(p.headerKey, "content-length") {
			p.state = eContentLength
			goto contentLength
		}

		p.state = eHeaderValue
		goto headerValue
	}

contentLength:
	for i, char := range data {
		if char == ' ' {
			continue
		}

		if char < '0' || char > '9' {
			data = data[i:]
			goto contentLengthEnd
		}

		p.contentLength = p.contentLength*10 + int(char-'0')
	}

	return false, nil, nil

contentLengthEnd:
	// data is guaranteed to contain AT LEAST 1 byte here, as this point is
	// reachable only when the loop above met a non-digit character
	request.ContentLength = p.contentLength

	// data[0] is never a space: the digit loop above consumes those
	switch data[0] {
	case '\r':
		data = data[1:]
		p.state = eContentLengthCR
		goto contentLengthCR
	case '\n':
		data = data[1:]
		p.state = eHeaderKey
		goto headerKey
	default:
		return true, nil, status.ErrBadRequest
	}

contentLengthCR:
	if len(data) == 0 {
		return false, nil, nil
	}

	if data[0] != '\n' {
		return true, nil, status.ErrBadRequest
	}

	data = data[1:]
	p.state = eHeaderKey
	goto headerKey

headerValue:
	{
		lf := bytes.IndexByte(data, '\n')
		if lf == -1 {
			if !headerValBuff.Append(data) {
				return true, nil, status.ErrHeaderFieldsTooLarge
			}

			if headerValBuff.SegmentLength() > p.cfg.Headers.MaxValueLength {
				return true, nil, status.ErrHeaderFieldsTooLarge
			}

			return false, nil, nil
		}

		if !headerValBuff.Append(data[:lf]) {
			return true, nil, status.ErrHeaderFieldsTooLarge
		}

		if headerValBuff.SegmentLength() > p.cfg.Headers.MaxValueLength {
			return true, nil, status.ErrHeaderFieldsTooLarge
		}

		data = data[lf+1:]
		value := uf.B2S(trimPrefixSpaces(headerValBuff.Finish()))
		if len(value) > 0 && value[len(value)-1] == '\r' {
			value = value[:len(value)-1]
		}

		request.Headers.Add(p.headerKey, value)

		switch {
		case strcomp.EqualFold(p.headerKey, "upgrade"):
			request.Upgrade = value
		case strcomp.EqualFold(p.headerKey, "transfer-encoding"):
			request.Chunked = hasChunkedToken(value)
		}

		p.state = eHeaderKey
		goto headerKey
	}

headerValueCRLFCR:
	if len(data) == 0 {
		return false, nil, nil
	}

	if data[0] == '\n' {
		return p.headersCompleted(data[1:])
	}

	return true, nil, status.ErrBadRequest

body:
	{
		if len(data) == 0 {
			return false, nil, nil
		}

		piece := data
		if len(piece) > p.bodyLeft {
			piece = piece[:p.bodyLeft]
		}

		if err = p.appendBody(piece); err != nil {
			return true, nil, err
		}

		p.bodyLeft -= len(piece)
		if p.bodyLeft == 0 {
			return p.messageCompleted(data[len(piece):])
		}

		return false, nil, nil
	}

chunkedBody:
	for len(data) > 0 {
		chunk, rest, cerr := p.chunkedParser.Parse(data, false)
		switch cerr {
		case nil:
			if err = p.appendBody(chunk); err != nil {
				return true, nil, err
			}

			data = rest
		case io.EOF:
			if err = p.appendBody(chunk); err != nil {
				return true, nil, err
			}

			return p.messageCompleted(rest)
		default:
			return true, nil, status.ErrBadChunk
		}
	}

	return false, nil, nil
}

// headersCompleted decides whether the message has a body to consume. The
// request is completed right away otherwise.
func (p *Parser) headersCompleted(rest []byte) (done bool, extra []byte, err error) {
	switch {
	case p.request.Chunked:
		p.request.State = http.OnBody
		p.state = eChunkedBody

		if len(rest) > 0 {
			return p.Parse(rest)
		}

		return false, nil, nil
	case p.contentLength > 0:
		p.request.State = http.OnBody
		p.bodyLeft = p.contentLength
		p.state = eBody

		if len(rest) > 0 {
			return p.Parse(rest)
		}

		return false, nil, nil
	default:
		return p.messageCompleted(rest)
	}
}

func (p *Parser) messageCompleted(extra []byte) (bool, []byte, error) {
	p.request.State = http.OnMessageComplete
	p.reset()

	return true, extra, nil
}

func (p *Parser) appendBody(piece []byte) error {
	if len(p.request.Body)+len(piece) > p.cfg.Body.MaxSize {
		return status.ErrBodyTooLarge
	}

	p.request.Body = append(p.request.Body, piece...)

	return nil
}

func (p *Parser) reset() {
	p.headersNumber = 0
	p.startLineBuff.Clear()
	p.headerKeyBuff.Clear()
	p.headerValBuff.Clear()
	p.contentLength = 0
	p.bodyLeft = 0
	p.state = eMethod
}

func hasChunkedToken(value string) bool {
	for len(value) > 0 {
		var token string
		comma := strings.IndexByte(value, ',')
		if comma == -1 {
			token, value = value, ""
		} else {
			token, value = value[:comma], value[comma+1:]
		}

		if strcomp.EqualFold(strings.TrimSpace(token), "chunked") {
			return true
		}
	}

	return false
}

func trimPrefixSpaces(b []byte) []byte {
	for i, char := range b {
		if char != ' ' {
			return b[i:]
		}
	}

	return b[:0]
}

package http1

import (
	"log"

	"github.com/emberhttp/ember/config"
	"github.com/emberhttp/ember/http"
	"github.com/emberhttp/ember/internal/construct"
	"github.com/emberhttp/ember/transport"
	"github.com/indigo-web/chunkedbody"
	"github.com/indigo-web/utils/buffer"
	"github.com/indigo-web/utils/strcomp"
)

// Suit glues the parser and the connection lifecycle together. One suit serves
// exactly one connection: it feeds raw socket bytes into the parser, dispatches
// completed requests to the handler and decides whether the connection lives on.
type Suit struct {
	*Parser
	cfg         *config.Config
	client      transport.Client
	request     *http.Request
	handler     http.Handler
	fallback    http.Handler
	upgraders   map[string]http.Upgrader
	respBuff    []byte
	transaction []byte
	hijacked    bool
}

func New(
	cfg *config.Config,
	handler, fallback http.Handler,
	upgraders map[string]http.Upgrader,
	request *http.Request,
	client transport.Client,
	keyBuff, valBuff, startLineBuff *buffer.Buffer,
	chunkedParser *chunkedbody.Parser,
	respBuff []byte,
) *Suit {
	return &Suit{
		Parser:    NewParser(cfg, request, keyBuff, valBuff, startLineBuff, chunkedParser),
		cfg:       cfg,
		client:    client,
		request:   request,
		handler:   handler,
		fallback:  fallback,
		upgraders: upgraders,
		respBuff:  respBuff,
	}
}

// Initialize is the same constructor as just New, but consumes fewer arguments.
func Initialize(
	cfg *config.Config,
	handler, fallback http.Handler,
	upgraders map[string]http.Upgrader,
	client transport.Client,
	request *http.Request,
) *Suit {
	keyBuff, valBuff, startLineBuff := construct.Buffers(cfg)
	chunkedSettings := chunkedbody.DefaultSettings()
	chunkedSettings.MaxChunkSize = cfg.Body.MaxChunkSize
	respBuff := make([]byte, 0, cfg.NET.ResponseBuffSize)

	return New(
		cfg, handler, fallback, upgraders, request, client,
		keyBuff, valBuff, startLineBuff,
		chunkedbody.NewParser(chunkedSettings), respBuff,
	)
}

// ServeOnce serves exactly one request and reports whether it was handled
// successfully. Used mostly for testing purposes.
func (s *Suit) ServeOnce() bool {
	return s.serve(true)
}

// Serve serves the connection until the peer disconnects, a fatal protocol
// error occurs or the connection is handed over to an upgrader.
func (s *Suit) Serve() {
	s.serve(false)
}

func (s *Suit) serve(once bool) (ok bool) {
	request := s.request
	client := s.client

	for {
		data, err := client.Read()
		if err != nil {
			// a read error is either a disconnect or an exceeded deadline. In
			// both cases the connection is no longer usable
			return false
		}

		s.transaction = append(s.transaction, data...)

		done, extra, err := s.Parse(data)
		if err != nil {
			// the request is malformed beyond recovery. Closing the connection
			// without a response is the whole answer
			log.Printf("ember: malformed request from %s: %v", client.Remote(), err)
			return false
		}

		if !done {
			continue
		}

		if len(request.Upgrade) > 0 {
			// the whole handshake is rolled back, so the upgrader reads the raw
			// request from the very first byte, pipelined data included
			client.Unread(s.transaction)
			s.handoff()
			return false
		}

		client.Unread(extra)
		s.transaction = s.transaction[:0]
		s.dispatch()
		request.Reset()

		if once {
			return true
		}
	}
}

func (s *Suit) dispatch() {
	resp := http.NewResponder(
		s.client, s.request.Proto, s.respBuff, s.cfg.Transfer.BufferCapacity,
	)

	if !s.handler.OnRequest(s.request, resp) {
		s.fallback.OnRequest(s.request, resp)
	}

	// a granularly composed head may still sit in the serialization buffer
	resp.Flush()

	if pending := resp.Pending(); pending != nil {
		pending.Run()
	}
}

// Hijacked reports whether the connection was handed over to an upgrader. A
// hijacked socket is no longer ours, closing it is the upgrader's business.
func (s *Suit) Hijacked() bool {
	return s.hijacked
}

func (s *Suit) handoff() {
	upgrader := s.upgraderFor(s.request.Upgrade)
	if upgrader == nil {
		log.Printf(
			"ember: no collaborator claimed the upgrade to %q, closing the connection",
			s.request.Upgrade,
		)
		return
	}

	s.hijacked = true
	upgrader.OnUpgrade(s.request, s.client)
}

func (s *Suit) upgraderFor(token string) http.Upgrader {
	for registered, upgrader := range s.upgraders {
		if strcomp.EqualFold(registered, token) {
			return upgrader
		}
	}

	return nil
}

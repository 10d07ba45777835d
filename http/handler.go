package http

import "github.com/emberhttp/ember/transport"

// Handler is the external collaborator completed requests are dispatched to.
// OnRequest reports whether it produced a response; returning false surfaces
// the missing-handler event, letting the embedder supply a default.
type Handler interface {
	OnRequest(request *Request, resp *Responder) bool
}

// HandlerFunc adapts a plain function to the Handler interface.
type HandlerFunc func(request *Request, resp *Responder) bool

func (f HandlerFunc) OnRequest(request *Request, resp *Responder) bool {
	return f(request, resp)
}

// Upgrader is the external collaborator an upgrade request is delegated to.
// It receives the raw client with the whole handshake replayable via Read;
// from that point the connection belongs to the upgrader: it stays open after
// OnUpgrade returns and closing it is the upgrader's duty.
type Upgrader interface {
	OnUpgrade(request *Request, client transport.Client)
}

// UpgraderFunc adapts a plain function to the Upgrader interface.
type UpgraderFunc func(request *Request, client transport.Client)

func (f UpgraderFunc) OnUpgrade(request *Request, client transport.Client) {
	f(request, client)
}

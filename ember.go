package ember

import (
	"log"
	"net"

	"github.com/emberhttp/ember/config"
	"github.com/emberhttp/ember/http"
	"github.com/emberhttp/ember/http/status"
	"github.com/emberhttp/ember/internal/construct"
	"github.com/emberhttp/ember/internal/protocol/http1"
	"github.com/emberhttp/ember/transport"
)

// Server is an embeddable HTTP/1.x server core. It owns listening sockets and
// connection lifecycles, parses requests and hands every completed one to the
// registered handler together with a responder. It deliberately contains no
// routing: the embedder decides what a request maps to.
type Server struct {
	cfg       *config.Config
	handler   http.Handler
	fallback  http.Handler
	upgraders map[string]http.Upgrader
	sup       *transport.Supervisor
}

// New returns a new server. A custom config may be passed, otherwise defaults
// are used.
func New(optionalCfg ...*config.Config) *Server {
	cfg := config.Default()
	if len(optionalCfg) > 0 {
		cfg = optionalCfg[0]
	}

	return &Server{
		cfg:       cfg,
		handler:   http.HandlerFunc(unhandled),
		fallback:  http.HandlerFunc(notFound),
		upgraders: make(map[string]http.Upgrader),
		sup:       transport.NewSupervisor(),
	}
}

// OnRequest registers the handler completed requests are dispatched to.
func (s *Server) OnRequest(handler http.Handler) *Server {
	s.handler = handler
	return s
}

// OnMissingHandler replaces the default reaction to requests the handler
// reported as unhandled. The default responds 404 Not Found.
func (s *Server) OnMissingHandler(handler http.Handler) *Server {
	s.fallback = handler
	return s
}

// Upgrade registers a collaborator for the protocol token. A request carrying
// "Upgrade: <token>" is not dispatched: the connection, with the whole
// handshake readable again from its very first byte, is handed to the
// collaborator instead. Tokens are matched case-insensitively.
func (s *Server) Upgrade(token string, upgrader http.Upgrader) *Server {
	s.upgraders[token] = upgrader
	return s
}

// Bind starts listening on the address and returns the bound port, which is
// handy when port zero was requested. On failure -1 is returned and the cause
// is logged.
func (s *Server) Bind(addr string) (port int) {
	tcp := transport.NewTCP()
	if err := tcp.Bind(addr); err != nil {
		log.Printf("ember: listen on %s: %v", addr, err)
		return -1
	}

	s.sup.Add(tcp, s.serveConn)

	return tcp.Port()
}

// Serve starts accepting connections on all bound addresses and blocks until
// Stop is called or a listener fails fatally.
func (s *Server) Serve() error {
	return s.sup.Run(s.cfg.NET)
}

// Stop brings all the listeners down and waits for served connections to end.
func (s *Server) Stop() {
	s.sup.Stop()
}

func (s *Server) serveConn(conn net.Conn) {
	client := construct.Client(s.cfg.NET, conn)
	request := construct.Request(s.cfg, client)
	suit := http1.Initialize(s.cfg, s.handler, s.fallback, s.upgraders, client, request)
	suit.Serve()

	if !suit.Hijacked() {
		_ = client.Close()
	}
}

func unhandled(*http.Request, *http.Responder) bool {
	return false
}

func notFound(_ *http.Request, resp *http.Responder) bool {
	resp.WriteStatus(status.NotFound)
	return true
}

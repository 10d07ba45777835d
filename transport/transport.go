package transport

import (
	"net"

	"github.com/emberhttp/ember/config"
)

// Transport is a bound listening endpoint. Multiple transports may feed the same
// acceptance pipeline via the Supervisor.
type Transport interface {
	Bind(addr string) error
	Port() int
	// Listen accepts connections until stopped, invoking cb on a separate
	// goroutine per each. The callback takes ownership of the socket, closing
	// it included.
	Listen(cfg config.NET, cb func(conn net.Conn)) error
	Stop()
	Close()
	Wait()
}

package transport

import (
	"net"
	"sync/atomic"

	"github.com/emberhttp/ember/config"
)

// Supervisor multiplexes any number of bound transports over a single acceptance
// pipeline. The first transport to fail fatally brings the rest down.
type Supervisor struct {
	stopped *atomic.Bool
	ts      []boundTransport
	stopch  chan struct{}
}

type boundTransport struct {
	t  Transport
	cb func(net.Conn)
}

func NewSupervisor() *Supervisor {
	return &Supervisor{
		stopped: new(atomic.Bool),
		stopch:  make(chan struct{}),
	}
}

// Add registers an already bound transport. Every accepted connection is passed
// to cb on its own goroutine.
func (s *Supervisor) Add(t Transport, cb func(net.Conn)) {
	s.ts = append(s.ts, boundTransport{
		t:  t,
		cb: cb,
	})
}

func (s *Supervisor) Run(cfg config.NET) error {
	if len(s.ts) == 0 {
		return nil
	}

	errch := make(chan error)

	for _, t := range s.ts {
		go func(t boundTransport, ch chan<- error) {
			ch <- t.t.Listen(cfg, t.cb)
		}(t, errch)
	}

	select {
	case err := <-errch:
		s.shutdown()
		drain(errch, len(s.ts)-1)

		return err
	case <-s.stopch:
		s.shutdown()
		drain(errch, len(s.ts))
		s.stopch <- struct{}{}

		return nil
	}
}

func (s *Supervisor) Stop() {
	if !s.stopped.Load() {
		s.stopch <- struct{}{}
		<-s.stopch
	}
}

func (s *Supervisor) shutdown() {
	s.stopped.Store(true)

	for _, t := range s.ts {
		t.t.Stop()
		t.t.Close()
	}

	for _, t := range s.ts {
		t.t.Wait()
	}
}

func drain(ch <-chan error, n int) {
	for i := 0; i < n; i++ {
		<-ch
	}
}

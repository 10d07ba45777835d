package dummy

import (
	"errors"
	"io"
	"net"

	"github.com/emberhttp/ember/transport"
)

var _ transport.Client = new(MockClient)

var ErrClosed = errors.New("the client is closed")

// MockClient replays the pre-defined data slices on every Read call, one at a
// time, and records everything written into it. When the script is exhausted,
// Read returns io.EOF.
type MockClient struct {
	data    [][]byte
	pending []byte
	written []byte
	pointer int
	closed  bool
	broken  bool
}

func NewMockClient(data ...[]byte) *MockClient {
	return &MockClient{
		data: data,
	}
}

// Broken makes all writes fail, simulating a peer which is gone.
func (m *MockClient) Broken() *MockClient {
	m.broken = true
	return m
}

func (m *MockClient) Read() ([]byte, error) {
	if m.closed {
		return nil, ErrClosed
	}

	if len(m.pending) > 0 {
		pending := m.pending
		m.pending = nil

		return pending, nil
	}

	if m.pointer >= len(m.data) {
		return nil, io.EOF
	}

	piece := m.data[m.pointer]
	m.pointer++

	return piece, nil
}

func (m *MockClient) Unread(b []byte) {
	m.pending = b
}

func (m *MockClient) Write(b []byte) error {
	if m.closed {
		return ErrClosed
	}
	if m.broken {
		return errors.New("broken pipe")
	}

	m.written = append(m.written, b...)

	return nil
}

// Written returns everything accumulated by Write calls so far.
func (m *MockClient) Written() []byte {
	return m.written
}

func (m *MockClient) Conn() net.Conn {
	return nil
}

func (m *MockClient) Remote() net.Addr {
	return nil
}

func (m *MockClient) Close() error {
	m.closed = true
	return nil
}

func (m *MockClient) Closed() bool {
	return m.closed
}

func NewNopClient() transport.Client {
	return NewMockClient()
}

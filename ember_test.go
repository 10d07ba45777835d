package ember

import (
	"bufio"
	"fmt"
	"io"
	"net"
	"testing"
	"time"

	"github.com/emberhttp/ember/http"
	"github.com/emberhttp/ember/http/mime"
	"github.com/emberhttp/ember/http/status"
	"github.com/emberhttp/ember/transport"
	"github.com/stretchr/testify/require"
)

func TestServer(t *testing.T) {
	server := New().
		OnRequest(http.HandlerFunc(func(request *http.Request, resp *http.Responder) bool {
			switch request.Path {
			case "/greet":
				resp.Write([]byte("Hello, world!"), mime.Plain, status.OK)
				return true
			case "/echo":
				resp.Write(request.Body, mime.OctetStream, status.OK)
				return true
			default:
				return false
			}
		})).
		Upgrade("tea", http.UpgraderFunc(func(request *http.Request, client transport.Client) {
			// the socket is ours from here on, handshake bytes included
			defer client.Close()

			if _, err := client.Read(); err != nil {
				return
			}
			_ = client.Write([]byte("brewing"))
		}))

	port := server.Bind("localhost:0")
	require.NotEqual(t, -1, port)

	go func() {
		_ = server.Serve()
	}()
	defer server.Stop()

	dial := func(t *testing.T) net.Conn {
		conn, err := net.Dial("tcp", fmt.Sprintf("localhost:%d", port))
		require.NoError(t, err)
		require.NoError(t, conn.SetDeadline(time.Now().Add(5*time.Second)))
		return conn
	}

	t.Run("plain request", func(t *testing.T) {
		conn := dial(t)
		defer conn.Close()

		_, err := conn.Write([]byte("GET /greet HTTP/1.1\r\nHost: localhost\r\n\r\n"))
		require.NoError(t, err)

		reader := bufio.NewReader(conn)
		line, err := reader.ReadString('\n')
		require.NoError(t, err)
		require.Equal(t, "HTTP/1.1 200 OK\r\n", line)

		for line != "\r\n" {
			line, err = reader.ReadString('\n')
			require.NoError(t, err)
		}

		body := make([]byte, 13)
		_, err = io.ReadFull(reader, body)
		require.NoError(t, err)
		require.Equal(t, "Hello, world!", string(body))
	})

	t.Run("request body round-trip", func(t *testing.T) {
		conn := dial(t)
		defer conn.Close()

		_, err := conn.Write([]byte("POST /echo HTTP/1.1\r\nContent-Length: 5\r\n\r\nhello"))
		require.NoError(t, err)

		reader := bufio.NewReader(conn)
		line, err := reader.ReadString('\n')
		require.NoError(t, err)
		require.Equal(t, "HTTP/1.1 200 OK\r\n", line)

		for line != "\r\n" {
			line, err = reader.ReadString('\n')
			require.NoError(t, err)
		}

		body := make([]byte, 5)
		_, err = io.ReadFull(reader, body)
		require.NoError(t, err)
		require.Equal(t, "hello", string(body))
	})

	t.Run("unknown path responds 404", func(t *testing.T) {
		conn := dial(t)
		defer conn.Close()

		_, err := conn.Write([]byte("GET /nowhere HTTP/1.1\r\n\r\n"))
		require.NoError(t, err)

		line, err := bufio.NewReader(conn).ReadString('\n')
		require.NoError(t, err)
		require.Equal(t, "HTTP/1.1 404 Not Found\r\n", line)
	})

	t.Run("upgrade handoff", func(t *testing.T) {
		conn := dial(t)
		defer conn.Close()

		_, err := conn.Write([]byte("GET /chat HTTP/1.1\r\nConnection: Upgrade\r\nUpgrade: tea\r\n\r\n"))
		require.NoError(t, err)

		greeting := make([]byte, 7)
		_, err = io.ReadFull(conn, greeting)
		require.NoError(t, err)
		require.Equal(t, "brewing", string(greeting))
	})
}

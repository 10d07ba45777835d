package http1

import (
	"strings"
	"testing"

	"github.com/dchest/uniuri"
	"github.com/emberhttp/ember/config"
	"github.com/emberhttp/ember/http"
	"github.com/emberhttp/ember/http/method"
	"github.com/emberhttp/ember/http/proto"
	"github.com/emberhttp/ember/http/status"
	"github.com/emberhttp/ember/internal/construct"
	"github.com/emberhttp/ember/kv"
	"github.com/emberhttp/ember/transport/dummy"
	"github.com/indigo-web/chunkedbody"
	"github.com/stretchr/testify/require"
)

func getParser() (*Parser, *http.Request) {
	cfg := config.Default()
	keyBuff, valBuff, startLineBuff := construct.Buffers(cfg)
	chunkedSettings := chunkedbody.DefaultSettings()
	chunkedSettings.MaxChunkSize = cfg.Body.MaxChunkSize
	request := construct.Request(cfg, dummy.NewNopClient())

	return NewParser(
		cfg, request, keyBuff, valBuff, startLineBuff,
		chunkedbody.NewParser(chunkedSettings),
	), request
}

type wantedRequest struct {
	Headers  *kv.Storage
	Path     string
	Method   method.Method
	Protocol proto.Proto
}

func compareRequests(t *testing.T, wanted wantedRequest, actual *http.Request) {
	require.Equal(t, wanted.Method, actual.Method)
	require.Equal(t, wanted.Path, actual.Path)
	require.Equal(t, wanted.Protocol, actual.Proto)

	headers := wanted.Headers.Iter()
	for pair, cont := headers.Next(); cont; pair, cont = headers.Next() {
		require.Equal(t, wanted.Headers.Values(pair.Key), actual.Headers.Values(pair.Key))
	}
}

func splitIntoParts(req []byte, n int) (parts [][]byte) {
	for i := 0; i < len(req); i += n {
		end := i + n
		if end > len(req) {
			end = len(req)
		}

		parts = append(parts, req[i:end])
	}

	return parts
}

func feedPartially(
	parser *Parser, rawRequest []byte, n int,
) (done bool, extra []byte, err error) {
	for _, chunk := range splitIntoParts(rawRequest, n) {
		done, extra, err = parser.Parse(chunk)
		if err != nil || done {
			return done, extra, err
		}
	}

	return done, extra, nil
}

func TestParserGET(t *testing.T) {
	parser, request := getParser()

	t.Run("simple GET", func(t *testing.T) {
		raw := "GET / HTTP/1.1\r\n\r\n"
		done, extra, err := parser.Parse([]byte(raw))
		require.NoError(t, err)
		require.True(t, done)
		require.Empty(t, extra)

		wanted := wantedRequest{
			Method:   method.GET,
			Path:     "/",
			Protocol: proto.HTTP11,
			Headers:  kv.New(),
		}

		compareRequests(t, wanted, request)
		require.Equal(t, http.OnMessageComplete, request.State)
		request.Reset()
	})

	t.Run("normal GET", func(t *testing.T) {
		raw := "GET / HTTP/1.1\r\nHello: World!\r\nEaster: Egg\r\n\r\n"
		done, extra, err := parser.Parse([]byte(raw))
		require.NoError(t, err)
		require.True(t, done)
		require.Empty(t, extra)

		wanted := wantedRequest{
			Method:   method.GET,
			Path:     "/",
			Protocol: proto.HTTP11,
			Headers: kv.NewFromMap(map[string][]string{
				"hello":  {"World!"},
				"easter": {"Egg"},
			}),
		}

		compareRequests(t, wanted, request)
		request.Reset()
	})

	t.Run("multiple header values", func(t *testing.T) {
		raw := "GET / HTTP/1.1\r\nAccept: one,two\r\nAccept: three\r\n\r\n"
		done, extra, err := parser.Parse([]byte(raw))
		require.NoError(t, err)
		require.True(t, done)
		require.Empty(t, extra)

		require.Equal(t, []string{"one,two", "three"}, request.Headers.Values("accept"))
		require.Equal(t, "one,two, three", request.Headers.Joined("accept"))
		request.Reset()
	})

	t.Run("only lf", func(t *testing.T) {
		raw := "GET / HTTP/1.1\nHello: World!\n\n"
		done, extra, err := parser.Parse([]byte(raw))
		require.NoError(t, err)
		require.True(t, done)
		require.Empty(t, extra)

		require.Equal(t, "World!", request.Headers.Value("hello"))
		request.Reset()
	})

	t.Run("fuzz GET", func(t *testing.T) {
		raw := "GET /path HTTP/1.1\r\nHello: World!\r\nEaster: Egg\r\n\r\n"

		for i := 1; i < len(raw); i++ {
			done, extra, err := feedPartially(parser, []byte(raw), i)
			require.NoError(t, err, i)
			require.True(t, done, i)
			require.Empty(t, extra)

			wanted := wantedRequest{
				Method:   method.GET,
				Path:     "/path",
				Protocol: proto.HTTP11,
				Headers: kv.NewFromMap(map[string][]string{
					"hello": {"World!"},
				}),
			}

			compareRequests(t, wanted, request)
			request.Reset()
		}
	})

	t.Run("long header value", func(t *testing.T) {
		value := uniuri.NewLen(512)
		raw := "GET / HTTP/1.1\r\nX-Token: " + value + "\r\n\r\n"
		done, _, err := parser.Parse([]byte(raw))
		require.NoError(t, err)
		require.True(t, done)
		require.Equal(t, value, request.Headers.Value("x-token"))
		request.Reset()
	})

	t.Run("extra pipelined bytes", func(t *testing.T) {
		raw := "GET / HTTP/1.1\r\n\r\nGET /second HTTP/1.1\r\n\r\n"
		done, extra, err := parser.Parse([]byte(raw))
		require.NoError(t, err)
		require.True(t, done)
		require.Equal(t, "GET /second HTTP/1.1\r\n\r\n", string(extra))
		request.Reset()
	})

	t.Run("upgrade token", func(t *testing.T) {
		raw := "GET /chat HTTP/1.1\r\nConnection: Upgrade\r\nUpgrade: WebSocket\r\n\r\n"
		done, _, err := parser.Parse([]byte(raw))
		require.NoError(t, err)
		require.True(t, done)
		require.Equal(t, "WebSocket", request.Upgrade)
		request.Reset()
	})
}

func TestParserBody(t *testing.T) {
	t.Run("content-length", func(t *testing.T) {
		parser, request := getParser()
		raw := "POST / HTTP/1.1\r\nContent-Length: 13\r\n\r\nHello, world!"
		done, extra, err := parser.Parse([]byte(raw))
		require.NoError(t, err)
		require.True(t, done)
		require.Empty(t, extra)
		require.Equal(t, 13, request.ContentLength)
		require.Equal(t, "Hello, world!", string(request.Body))
		require.Equal(t, http.OnMessageComplete, request.State)
	})

	t.Run("content length padded with spaces", func(t *testing.T) {
		parser, request := getParser()
		raw := "POST / HTTP/1.1\r\nContent-Length:  5 \r\n\r\nhello"
		done, extra, err := parser.Parse([]byte(raw))
		require.NoError(t, err)
		require.True(t, done)
		require.Empty(t, extra)
		require.Equal(t, 5, request.ContentLength)
		require.Equal(t, "hello", string(request.Body))
	})

	t.Run("fuzz POST by different chunk sizes", func(t *testing.T) {
		parser, request := getParser()
		raw := "POST / HTTP/1.1\r\nHello: World!\r\nContent-Length: 13\r\n\r\nHello, World!"

		for i := 1; i < len(raw); i++ {
			done, _, err := feedPartially(parser, []byte(raw), i)
			require.NoError(t, err, i)
			require.True(t, done, i)
			require.Equal(t, "Hello, World!", string(request.Body))
			request.Reset()
		}
	})

	t.Run("body followed by pipelined request", func(t *testing.T) {
		parser, request := getParser()
		raw := "POST / HTTP/1.1\r\nContent-Length: 2\r\n\r\nhiGET / HTTP/1.1\r\n\r\n"
		done, extra, err := parser.Parse([]byte(raw))
		require.NoError(t, err)
		require.True(t, done)
		require.Equal(t, "hi", string(request.Body))
		require.Equal(t, "GET / HTTP/1.1\r\n\r\n", string(extra))
	})

	t.Run("chunked body", func(t *testing.T) {
		parser, request := getParser()
		raw := "POST / HTTP/1.1\r\nTransfer-Encoding: chunked\r\n\r\n" +
			"d\r\nHello, world!\r\n1a\r\nBut what's wrong with you?\r\n0\r\n\r\n"
		done, extra, err := parser.Parse([]byte(raw))
		require.NoError(t, err)
		require.True(t, done)
		require.Empty(t, extra)
		require.True(t, request.Chunked)
		require.Equal(t, "Hello, world!But what's wrong with you?", string(request.Body))
	})

	t.Run("fuzz chunked body", func(t *testing.T) {
		parser, request := getParser()
		raw := "POST / HTTP/1.1\r\nTransfer-Encoding: chunked\r\n\r\n" +
			"7\r\nMozilla\r\n9\r\nDeveloper\r\n7\r\nNetwork\r\n0\r\n\r\n"

		for i := 1; i < len(raw); i++ {
			done, _, err := feedPartially(parser, []byte(raw), i)
			require.NoError(t, err, i)
			require.True(t, done, i)
			require.Equal(t, "MozillaDeveloperNetwork", string(request.Body))
			request.Reset()
		}
	})

	t.Run("state transitions", func(t *testing.T) {
		parser, request := getParser()
		require.Equal(t, http.Idle, request.State)

		done, _, err := parser.Parse([]byte("POST /"))
		require.NoError(t, err)
		require.False(t, done)
		require.Equal(t, http.OnMessageBegin, request.State)

		done, _, err = parser.Parse([]byte(" HTTP/1.1\r\nContent-Length: 5\r\n"))
		require.NoError(t, err)
		require.False(t, done)
		require.Equal(t, http.OnHeaders, request.State)

		done, _, err = parser.Parse([]byte("\r\nhel"))
		require.NoError(t, err)
		require.False(t, done)
		require.Equal(t, http.OnBody, request.State)

		done, _, err = parser.Parse([]byte("lo"))
		require.NoError(t, err)
		require.True(t, done)
		require.Equal(t, http.OnMessageComplete, request.State)
		require.Equal(t, "hello", string(request.Body))
	})
}

func TestParserNegative(t *testing.T) {
	t.Run("no method", func(t *testing.T) {
		parser, _ := getParser()
		raw := []byte(" / HTTP/1.1\r\n\r\n")
		_, _, err := parser.Parse(raw)
		require.EqualError(t, err, status.ErrBadRequest.Error())
	})

	t.Run("no path", func(t *testing.T) {
		parser, _ := getParser()
		raw := []byte("GET HTTP/1.1\r\n\r\n")
		_, _, err := parser.Parse(raw)
		require.EqualError(t, err, status.ErrBadRequest.Error())
	})

	t.Run("whitespace as a path", func(t *testing.T) {
		parser, _ := getParser()
		raw := []byte("GET  HTTP/1.1\r\n\r\n")
		_, _, err := parser.Parse(raw)
		require.EqualError(t, err, status.ErrBadRequest.Error())
	})

	t.Run("short invalid method", func(t *testing.T) {
		parser, _ := getParser()
		raw := []byte("GE / HTTP/1.1\r\n\r\n")
		_, _, err := parser.Parse(raw)
		require.EqualError(t, err, status.ErrMethodNotImplemented.Error())
	})

	t.Run("long invalid method", func(t *testing.T) {
		parser, _ := getParser()
		raw := []byte("PATCHPOSTPUT / HTTP/1.1\r\n\r\n")
		_, _, err := parser.Parse(raw)
		require.EqualError(t, err, status.ErrMethodNotImplemented.Error())
	})

	t.Run("short invalid protocol", func(t *testing.T) {
		parser, _ := getParser()
		raw := []byte("GET / HTT\r\n\r\n")
		_, _, err := parser.Parse(raw)
		require.EqualError(t, err, status.ErrUnsupportedProtocol.Error())
	})

	t.Run("long invalid protocol", func(t *testing.T) {
		parser, _ := getParser()
		raw := []byte("GET / HTTPS/1.1\r\n\r\n")
		_, _, err := parser.Parse(raw)
		require.EqualError(t, err, status.ErrUnsupportedProtocol.Error())
	})

	t.Run("unsupported minor version", func(t *testing.T) {
		parser, _ := getParser()
		raw := []byte("GET / HTTP/1.2\r\n\r\n")
		_, _, err := parser.Parse(raw)
		require.EqualError(t, err, status.ErrUnsupportedProtocol.Error())
	})

	t.Run("invalid content length", func(t *testing.T) {
		parser, _ := getParser()
		raw := []byte("GET / HTTP/1.1\r\nContent-Length: 1f5\r\n\r\n")
		_, _, err := parser.Parse(raw)
		require.EqualError(t, err, status.ErrBadRequest.Error())
	})

	t.Run("too long request line", func(t *testing.T) {
		parser, _ := getParser()
		raw := []byte("GET /" + strings.Repeat("a", 64*1024) + " HTTP/1.1\r\n\r\n")
		_, _, err := parser.Parse(raw)
		require.EqualError(t, err, status.ErrTooLongRequestLine.Error())
	})

	t.Run("too many headers", func(t *testing.T) {
		parser, _ := getParser()
		raw := "GET / HTTP/1.1\r\n"
		for i := 0; i < 100; i++ {
			raw += "Header-" + strings.Repeat("a", i%10+1) + ": value\r\n"
		}
		raw += "\r\n"
		_, _, err := parser.Parse([]byte(raw))
		require.EqualError(t, err, status.ErrTooManyHeaders.Error())
	})

	t.Run("lfcr crlf break sequence", func(t *testing.T) {
		parser, _ := getParser()
		raw := []byte("GET / HTTP/1.1\n\r\r\n")
		_, _, err := parser.Parse(raw)
		require.EqualError(t, err, status.ErrBadRequest.Error())
	})

	t.Run("bad chunk", func(t *testing.T) {
		parser, _ := getParser()
		raw := []byte("POST / HTTP/1.1\r\nTransfer-Encoding: chunked\r\n\r\nzz\r\nhello\r\n")
		_, _, err := parser.Parse(raw)
		require.EqualError(t, err, status.ErrBadChunk.Error())
	})
}

package construct

import (
	"net"

	"github.com/emberhttp/ember/config"
	"github.com/emberhttp/ember/http"
	"github.com/emberhttp/ember/kv"
	"github.com/emberhttp/ember/transport"
	"github.com/indigo-web/utils/buffer"
)

func Request(cfg *config.Config, client transport.Client) *http.Request {
	headers := kv.NewPrealloc(cfg.Headers.Number.Default)

	return http.NewRequest(headers, client.Remote())
}

func Client(cfg config.NET, conn net.Conn) transport.Client {
	readBuff := make([]byte, cfg.ReadBufferSize)

	return transport.NewClient(conn, cfg.ReadTimeout, readBuff)
}

func Buffers(cfg *config.Config) (keyBuff, valBuff, startLineBuff *buffer.Buffer) {
	keyBuff = buffer.New(
		cfg.Headers.Space.Default,
		cfg.Headers.Space.Maximal,
	)
	valBuff = buffer.New(
		cfg.Headers.Space.Default,
		cfg.Headers.Space.Maximal,
	)
	startLineBuff = buffer.New(
		cfg.URI.RequestLineSize.Default,
		cfg.URI.RequestLineSize.Maximal,
	)

	return keyBuff, valBuff, startLineBuff
}

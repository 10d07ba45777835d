package config

import "time"

type (
	HeadersNumber struct {
		Default, Maximal int
	}

	HeadersSpace struct {
		Default, Maximal int
	}

	URIRequestLineSize struct {
		Default, Maximal int
	}
)

type (
	URI struct {
		// RequestLineSize is a shared buffer storing method, path and protocol when
		// they must be saved among incomplete reads. Please note that setting the
		// maximal boundary too low might result in very ambiguous errors.
		RequestLineSize URIRequestLineSize
	}

	Headers struct {
		// Number is responsible for the headers storage size.
		// Default value is an initial number of pre-allocated pairs.
		// Maximal value is the maximum number of headers allowed to be presented.
		Number HeadersNumber
		// Space limits the amount of memory occupied by request header keys and values.
		Space HeadersSpace
		// MaxValueLength limits the length of a single header value.
		MaxValueLength int
	}

	Body struct {
		// MaxSize describes the maximal size of a request body that can be buffered.
		MaxSize int
		// MaxChunkSize limits a single chunk length for chunk-encoded request bodies.
		MaxChunkSize int
	}

	NET struct {
		// ReadBufferSize is a size of buffer in bytes which will be used to read from
		// the socket.
		ReadBufferSize int
		// ReadTimeout controls the maximal lifetime of IDLE connections. If no data
		// was received in this period of time, the connection is closed.
		ReadTimeout time.Duration
		// AcceptLoopInterruptPeriod controls how often the Accept() call is interrupted
		// in order to check whether it's time to stop.
		AcceptLoopInterruptPeriod time.Duration
		// ResponseBuffSize is the initial size of the buffer a response is serialized
		// into before being written to the socket.
		ResponseBuffSize int
	}

	Transfer struct {
		// BufferCapacity is the fixed capacity of the buffer a streamed response body
		// is pumped through. It bounds the memory footprint of a single in-flight
		// stream no matter how large the body itself is.
		BufferCapacity int
	}
)

// Config holds settings used across various parts of ember, mainly restrictions,
// limitations and pre-allocations.
//
// You must ALWAYS modify defaults (returned via Default()) and NEVER try to initialize
// the config manually, as zero limits reject everything.
type Config struct {
	URI      URI
	Headers  Headers
	Body     Body
	NET      NET
	Transfer Transfer
}

// Default returns the default config. Those are initially well-balanced, however
// maximal defaults are pretty permitting.
func Default() *Config {
	return &Config{
		URI: URI{
			RequestLineSize: URIRequestLineSize{
				Default: 2 * 1024,
				// allow at most 16kb of request line, which is effectively pretty much
				// tolerant, considering most web-entities limit it to 4-8kb.
				Maximal: 16 * 1024,
			},
		},
		Headers: Headers{
			Number: HeadersNumber{
				Default: 10,
				Maximal: 50,
			},
			Space: HeadersSpace{
				Default: 1 * 1024,  // 1kb for headers must be fairly enough in most cases.
				Maximal: 16 * 1024, // However, there also might be extremely long cookies.
			},
			MaxValueLength: 8 * 1024,
		},
		Body: Body{
			MaxSize:      512 * 1024 * 1024, // 512 megabytes
			MaxChunkSize: 16 * 1024 * 1024,
		},
		NET: NET{
			ReadBufferSize:            4 * 1024,
			ReadTimeout:               90 * time.Second,
			AcceptLoopInterruptPeriod: 5 * time.Second,
			ResponseBuffSize:          2 * 1024,
		},
		Transfer: Transfer{
			BufferCapacity: 1024 * 1024, // 1mb buffer per in-flight stream
		},
	}
}

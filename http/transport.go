package http

import (
	"net"
	"net/http"
	"time"

	"golang.org/x/net/http2"
)

// TransportConfig configures the HTTP transport used for descriptor and
// artifact fetches, per the transport.http.* session keys.
type TransportConfig struct {
	// EnableHTTP2 enables HTTP/2 support (default: true)
	EnableHTTP2 bool

	// MaxIdleConns controls the maximum number of idle connections
	MaxIdleConns int

	// MaxIdleConnsPerHost controls idle connections per host
	MaxIdleConnsPerHost int

	// IdleConnTimeout is the maximum time an idle connection will remain idle
	IdleConnTimeout time.Duration

	// TLSHandshakeTimeout is the maximum time for TLS handshake
	TLSHandshakeTimeout time.Duration

	// ResponseHeaderTimeout is the maximum time to wait for response headers
	ResponseHeaderTimeout time.Duration

	// ExpectContinueTimeout is the time to wait for 100-Continue response
	ExpectContinueTimeout time.Duration

	// MaxConnsPerHost limits total connections per host
	MaxConnsPerHost int
}

// DefaultTransportConfig returns default transport configuration
func DefaultTransportConfig() TransportConfig {
	return TransportConfig{
		EnableHTTP2:           true,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   10,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: 10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		MaxConnsPerHost:       0, // Unlimited
	}
}

// NewTransport creates an HTTP transport with configured protocol support
func NewTransport(config TransportConfig) http.RoundTripper {
	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   30 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:          config.MaxIdleConns,
		MaxIdleConnsPerHost:   config.MaxIdleConnsPerHost,
		IdleConnTimeout:       config.IdleConnTimeout,
		TLSHandshakeTimeout:   config.TLSHandshakeTimeout,
		ResponseHeaderTimeout: config.ResponseHeaderTimeout,
		ExpectContinueTimeout: config.ExpectContinueTimeout,
		MaxConnsPerHost:       config.MaxConnsPerHost,
	}

	if config.EnableHTTP2 {
		// Enables automatic HTTP/2 negotiation via ALPN when using TLS.
		// Ignore errors - falls back to HTTP/1.1 if HTTP/2 configuration fails.
		_ = http2.ConfigureTransport(transport)
	}

	return transport
}

// NewHTTPClient creates an HTTP client with configured transport
func NewHTTPClient(config TransportConfig) *http.Client {
	transport := NewTransport(config)

	return &http.Client{
		Transport: transport,
		Timeout:   0, // No timeout at client level (use context)
	}
}

// NewDefaultHTTPClient creates an HTTP client with default configuration
func NewDefaultHTTPClient() *http.Client {
	return NewHTTPClient(DefaultTransportConfig())
}

// ProtocolVersion returns the HTTP protocol version from response
func ProtocolVersion(resp *http.Response) string {
	if resp.ProtoMajor == 2 {
		return "HTTP/2"
	}
	return "HTTP/1.1"
}

package http

import (
	"crypto/tls"
	nethttp "net/http"
	"os"

	"golang.org/x/net/http2"

	"github.com/loadfile/loadfile/internal/config"
	"github.com/loadfile/loadfile/internal/constants"
)

// NewClient creates the HTTP client used for uploads and listings.
//
// It starts from ConfigureHTTPClient (proxy modes) and then tunes the
// transport:
//   - HTTP/2 when talking to a TLS endpoint directly
//   - HTTP/1.1 when a proxy is active (proxies frequently break h2 streams)
//   - DISABLE_HTTP2=true forces HTTP/1.1, FORCE_HTTP2=true keeps h2 behind a proxy
//   - compression disabled (uploads are mostly already-compressed media)
//
// A nil cfg builds a direct client with default timeouts.
func NewClient(cfg *config.Config) (*nethttp.Client, error) {
	if cfg == nil {
		cfg = config.Default()
	}

	client, err := ConfigureHTTPClient(cfg)
	if err != nil {
		return nil, err
	}

	tr, ok := client.Transport.(*nethttp.Transport)
	if !ok {
		// NTLM wraps the transport in a Negotiator; leave it untouched.
		return client, nil
	}

	tr.IdleConnTimeout = constants.HTTPIdleConnTimeout
	tr.TLSHandshakeTimeout = constants.HTTPTLSHandshakeTimeout
	tr.ExpectContinueTimeout = constants.HTTPExpectContinueTimeout
	tr.DisableCompression = true
	tr.ForceAttemptHTTP2 = true
	_ = http2.ConfigureTransport(tr)

	if os.Getenv("DISABLE_HTTP2") == "true" || (proxyActive(cfg) && os.Getenv("FORCE_HTTP2") != "true") {
		disableHTTP2(tr)
	}

	client.Transport = tr
	return client, nil
}

// proxyActive reports whether requests will go through a proxy.
// Trust the configured mode first; only "system" consults the environment.
func proxyActive(cfg *config.Config) bool {
	switch cfg.ProxyMode {
	case "no-proxy", "":
		return false
	case "system":
		return os.Getenv("HTTP_PROXY") != "" || os.Getenv("HTTPS_PROXY") != "" ||
			os.Getenv("http_proxy") != "" || os.Getenv("https_proxy") != ""
	default:
		return cfg.ProxyHost != ""
	}
}

func disableHTTP2(tr *nethttp.Transport) {
	tr.ForceAttemptHTTP2 = false
	tr.TLSNextProto = make(map[string]func(string, *tls.Conn) nethttp.RoundTripper)
}

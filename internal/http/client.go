// Package http builds the shared HTTP client used for all object store
// traffic.
package http

import (
	"crypto/tls"
	"net"
	nethttp "net/http"
	"os"

	"golang.org/x/net/http2"

	"github.com/gregkopp/Archive-Final-Cut-Libraries-to-AWS-S3/internal/constants"
)

// NewClient creates an HTTP client tuned for long-running multipart
// transfers. The pool is sized for many concurrent part uploads against a
// single storage endpoint, compression is off because chunk files are
// already compressed, and there is no overall client timeout: transfer
// deadlines come from the request context.
//
// Set FCPARCHIVE_DISABLE_HTTP2=true to force HTTP/1.1 when an endpoint or
// middlebox misbehaves with multiplexed streams.
func NewClient() *nethttp.Client {
	tr := &nethttp.Transport{
		Proxy: nethttp.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout: constants.HTTPDialTimeout,
		}).DialContext,
		MaxIdleConns:          512,
		MaxIdleConnsPerHost:   100,
		MaxConnsPerHost:       100,
		IdleConnTimeout:       constants.HTTPIdleConnTimeout,
		TLSHandshakeTimeout:   constants.HTTPTLSHandshakeTimeout,
		ExpectContinueTimeout: constants.HTTPExpectContinueTimeout,
		DisableCompression:    true,
		ForceAttemptHTTP2:     true,
	}
	_ = http2.ConfigureTransport(tr)

	if os.Getenv("FCPARCHIVE_DISABLE_HTTP2") == "true" {
		tr.ForceAttemptHTTP2 = false
		tr.TLSNextProto = make(map[string]func(string, *tls.Conn) nethttp.RoundTripper)
	}

	return &nethttp.Client{Transport: tr}
}

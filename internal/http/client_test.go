package http

import (
	nethttp "net/http"
	"testing"
)

func TestNewClient(t *testing.T) {
	c := NewClient()
	if c.Timeout != 0 {
		t.Errorf("client timeout = %v, want none (deadlines come from context)", c.Timeout)
	}
	tr, ok := c.Transport.(*nethttp.Transport)
	if !ok {
		t.Fatalf("transport is %T, want *http.Transport", c.Transport)
	}
	if !tr.DisableCompression {
		t.Error("compression enabled for pre-compressed chunk uploads")
	}
	if tr.MaxConnsPerHost < tr.MaxIdleConnsPerHost {
		t.Error("MaxConnsPerHost below MaxIdleConnsPerHost")
	}
}

func TestNewClientHTTP2Disabled(t *testing.T) {
	t.Setenv("FCPARCHIVE_DISABLE_HTTP2", "true")
	c := NewClient()
	tr := c.Transport.(*nethttp.Transport)
	if tr.ForceAttemptHTTP2 {
		t.Error("HTTP/2 still forced with FCPARCHIVE_DISABLE_HTTP2=true")
	}
	if tr.TLSNextProto == nil || len(tr.TLSNextProto) != 0 {
		t.Error("TLSNextProto not cleared to pin HTTP/1.1")
	}
}

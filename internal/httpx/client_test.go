package httpx

import (
	"net/http"
	"testing"
	"time"
)

func transportOf(t *testing.T, c *http.Client) *http.Transport {
	t.Helper()
	tr, ok := c.Transport.(*http.Transport)
	if !ok {
		t.Fatalf("Transport is %T, want *http.Transport", c.Transport)
	}
	return tr
}

func TestNewDefaultClient(t *testing.T) {
	c := NewDefaultClient()

	if c.Timeout != DefaultTimeout {
		t.Errorf("Timeout = %v, want %v", c.Timeout, DefaultTimeout)
	}

	tr := transportOf(t, c)
	if tr.ResponseHeaderTimeout != DefaultResponseHeaderTimeout {
		t.Errorf("ResponseHeaderTimeout = %v, want %v", tr.ResponseHeaderTimeout, DefaultResponseHeaderTimeout)
	}
	if tr.DisableKeepAlives {
		t.Error("DisableKeepAlives = true, want false")
	}
}

func TestNewClientConfig(t *testing.T) {
	c := NewClient(&ClientConfig{
		Timeout:               5 * time.Second,
		ResponseHeaderTimeout: 2 * time.Second,
		DisableKeepAlives:     true,
	})

	if c.Timeout != 5*time.Second {
		t.Errorf("Timeout = %v, want 5s", c.Timeout)
	}

	tr := transportOf(t, c)
	if tr.ResponseHeaderTimeout != 2*time.Second {
		t.Errorf("ResponseHeaderTimeout = %v, want 2s", tr.ResponseHeaderTimeout)
	}
	if !tr.DisableKeepAlives {
		t.Error("DisableKeepAlives = false, want true")
	}
}

func TestNewStreamingClient(t *testing.T) {
	c := NewStreamingClient(15 * time.Second)

	if c.Timeout != 0 {
		t.Errorf("Timeout = %v, a streaming client must have no overall timeout", c.Timeout)
	}

	tr := transportOf(t, c)
	if tr.DialContext == nil {
		t.Error("DialContext is nil, the TCP dial would be unbounded")
	}
	if tr.ResponseHeaderTimeout != 15*time.Second {
		t.Errorf("ResponseHeaderTimeout = %v, want 15s", tr.ResponseHeaderTimeout)
	}
	if !tr.DisableKeepAlives {
		t.Error("DisableKeepAlives = false, want true for reconnect isolation")
	}
}

func TestNewStreamingClientZeroTimeout(t *testing.T) {
	tr := transportOf(t, NewStreamingClient(0))
	if tr.ResponseHeaderTimeout != DefaultTimeout {
		t.Errorf("ResponseHeaderTimeout = %v, want default %v", tr.ResponseHeaderTimeout, DefaultTimeout)
	}
	if tr.DialContext == nil {
		t.Error("DialContext is nil, the TCP dial would be unbounded")
	}
}

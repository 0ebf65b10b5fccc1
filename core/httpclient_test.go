package core

import (
	"net/http"
	"testing"
	"time"
)

func TestGetHTTPClient(t *testing.T) {
	cfg := &Config{}
	client := GetHTTPClient(cfg, 5*time.Second)
	if client.Timeout != 5*time.Second {
		t.Errorf("Timeout = %v", client.Timeout)
	}
	if client.Transport != nil {
		t.Error("default client must use the standard transport")
	}

	cfg.AllowSelfSignedCerts = true
	client = GetHTTPClient(cfg, 5*time.Second)
	transport, ok := client.Transport.(*http.Transport)
	if !ok || transport.TLSClientConfig == nil || !transport.TLSClientConfig.InsecureSkipVerify {
		t.Errorf("self-signed transport = %+v", client.Transport)
	}
}

func TestGetDefaultHTTPClient(t *testing.T) {
	client := GetDefaultHTTPClient(&Config{})
	if client.Timeout != 30*time.Second {
		t.Errorf("Timeout = %v, want 30s", client.Timeout)
	}
}

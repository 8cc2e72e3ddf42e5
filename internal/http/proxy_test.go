package http

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	ntlmssp "github.com/Azure/go-ntlmssp"

	"github.com/loadfile/loadfile/internal/config"
	"github.com/loadfile/loadfile/internal/constants"
)

func TestProxyFuncWithBypass(t *testing.T) {
	proxyURL, _ := url.Parse("http://proxy.corp:8080")

	tests := []struct {
		name       string
		noProxy    string
		url        string
		wantBypass bool
	}{
		{"empty list proxies everything", "", "http://editor.example.com:8188/loadfile/files", false},
		{"wildcard subdomain", "*.example.com", "http://editor.example.com:8188/loadfile/files", true},
		{"exact domain matches root", "example.com", "http://example.com/loadfile/files", true},
		{"exact domain matches subdomain", "example.com", "http://gpu.example.com/loadfile/files", true},
		{"cidr match", "10.0.0.0/8", "http://10.1.2.3:8188/loadfile/upload", true},
		{"multiple patterns cidr", "*.internal.corp, 192.168.0.0/16", "http://192.168.1.100:8188/", true},
		{"non-matching host", "*.internal.corp,10.0.0.0/8", "http://render.farm.io:8188/", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			proxyFunc := proxyFuncWithBypass(proxyURL, tt.noProxy)
			req, _ := http.NewRequest(http.MethodGet, tt.url, nil)
			result, err := proxyFunc(req)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if tt.wantBypass && result != nil {
				t.Errorf("expected bypass (nil) for %s, got %v", tt.url, result)
			}
			if !tt.wantBypass {
				if result == nil {
					t.Fatalf("expected proxy for %s, got nil (bypass)", tt.url)
				}
				if result.Host != "proxy.corp:8080" {
					t.Errorf("expected proxy host proxy.corp:8080, got %s", result.Host)
				}
			}
		})
	}
}

func TestBuildProxyURL(t *testing.T) {
	tests := []struct {
		name     string
		cfg      config.Config
		wantHost string
		wantUser bool
	}{
		{"default port", config.Config{ProxyHost: "proxy"}, "proxy:8080", false},
		{"explicit port", config.Config{ProxyHost: "proxy", ProxyPort: 3128}, "proxy:3128", false},
		{"user without password", config.Config{ProxyHost: "proxy", ProxyUser: "alice"}, "proxy:8080", false},
		{"full credentials", config.Config{ProxyHost: "proxy", ProxyUser: "alice", ProxyPassword: "pw"}, "proxy:8080", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u := buildProxyURL(&tt.cfg)
			if u.Host != tt.wantHost {
				t.Errorf("Host = %q, want %q", u.Host, tt.wantHost)
			}
			if (u.User != nil) != tt.wantUser {
				t.Errorf("User = %v, wantUser %v", u.User, tt.wantUser)
			}
		})
	}
}

func TestConfigureHTTPClient(t *testing.T) {
	t.Run("no-proxy", func(t *testing.T) {
		cfg := config.Default()
		client, err := ConfigureHTTPClient(cfg)
		if err != nil {
			t.Fatalf("ConfigureHTTPClient() error = %v", err)
		}
		tr, ok := client.Transport.(*http.Transport)
		if !ok {
			t.Fatalf("Transport = %T, want *http.Transport", client.Transport)
		}
		if tr.Proxy != nil {
			t.Error("no-proxy mode should not set a proxy func")
		}
		if client.Timeout != constants.DefaultRequestTimeout {
			t.Errorf("Timeout = %v, want %v", client.Timeout, constants.DefaultRequestTimeout)
		}
	})

	t.Run("ntlm wraps transport", func(t *testing.T) {
		cfg := config.Default()
		cfg.ProxyMode = "ntlm"
		cfg.ProxyHost = "proxy.corp"
		client, err := ConfigureHTTPClient(cfg)
		if err != nil {
			t.Fatalf("ConfigureHTTPClient() error = %v", err)
		}
		if _, ok := client.Transport.(ntlmssp.Negotiator); !ok {
			t.Errorf("Transport = %T, want ntlmssp.Negotiator", client.Transport)
		}
	})

	t.Run("basic without host falls back", func(t *testing.T) {
		cfg := config.Default()
		cfg.ProxyMode = "basic"
		client, err := ConfigureHTTPClient(cfg)
		if err != nil {
			t.Fatalf("ConfigureHTTPClient() error = %v", err)
		}
		if tr := client.Transport.(*http.Transport); tr.Proxy != nil {
			t.Error("missing host should fall back to direct connections")
		}
	})

	t.Run("custom timeout", func(t *testing.T) {
		cfg := config.Default()
		cfg.RequestTimeout = 7 * time.Second
		client, err := ConfigureHTTPClient(cfg)
		if err != nil {
			t.Fatalf("ConfigureHTTPClient() error = %v", err)
		}
		if client.Timeout != 7*time.Second {
			t.Errorf("Timeout = %v, want 7s", client.Timeout)
		}
	})

	t.Run("unsupported mode", func(t *testing.T) {
		cfg := config.Default()
		cfg.ProxyMode = "socks5"
		if _, err := ConfigureHTTPClient(cfg); err == nil || !strings.Contains(err.Error(), "unsupported proxy mode") {
			t.Errorf("expected unsupported proxy mode error, got %v", err)
		}
	})
}

func TestWarmupProxy(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.Write([]byte(`{"files":[]}`))
	}))
	defer srv.Close()

	cfg := config.Default()
	cfg.ServerURL = srv.URL
	if err := warmupProxy(srv.Client(), cfg); err != nil {
		t.Fatalf("warmupProxy() error = %v", err)
	}
	if gotPath != constants.ListEndpoint {
		t.Errorf("warmup path = %q, want %q", gotPath, constants.ListEndpoint)
	}

	failing := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer failing.Close()
	cfg.ServerURL = failing.URL
	if err := warmupProxy(failing.Client(), cfg); err == nil {
		t.Error("expected error for 502 warmup response")
	}
}

func TestNeedsProxyPassword(t *testing.T) {
	tests := []struct {
		mode, user, pass string
		want             bool
	}{
		{"no-proxy", "alice", "", false},
		{"system", "alice", "", false},
		{"basic", "", "", false},
		{"basic", "alice", "", true},
		{"NTLM", "alice", "", true},
		{"ntlm", "alice", "pw", false},
	}
	for _, tt := range tests {
		cfg := &config.Config{ProxyMode: tt.mode, ProxyUser: tt.user, ProxyPassword: tt.pass}
		if got := NeedsProxyPassword(cfg); got != tt.want {
			t.Errorf("NeedsProxyPassword(%s,%q,%q) = %v, want %v", tt.mode, tt.user, tt.pass, got, tt.want)
		}
	}
}

package gateway

import (
	"context"
	"encoding/base64"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"
)

// fakeRouterOS поднимает httptest-сервер, отвечающий как /rest/* устройства.
// handlers: endpoint (без /rest/) → JSON-ответ; отсутствующий endpoint → 404.
func fakeRouterOS(t *testing.T, handlers map[string]string) (*httptest.Server, Target) {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Basic "+base64.StdEncoding.EncodeToString([]byte("admin:secret")) {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		ep := r.URL.Path[len("/rest/"):]
		if r.URL.RawQuery != "" {
			ep += "?" + r.URL.RawQuery
		}
		body, ok := handlers[ep]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)

	u, err := url.Parse(srv.URL)
	if err != nil {
		t.Fatalf("parse test server url: %v", err)
	}
	return srv, Target{IP: u.Hostname(), Port: u.Port(), Username: "admin", Password: "secret"}
}

func TestFetchEndpoint(t *testing.T) {
	_, target := fakeRouterOS(t, map[string]string{
		"system/identity": `{"name":"RTR-01"}`,
	})
	c := NewClient(2 * time.Second)

	raw, err := c.FetchEndpoint(context.Background(), target, "system/identity")
	if err != nil {
		t.Fatalf("FetchEndpoint: %v", err)
	}
	if string(raw) != `{"name":"RTR-01"}` {
		t.Errorf("unexpected body: %s", raw)
	}
}

func TestFetchEndpointNon2xx(t *testing.T) {
	_, target := fakeRouterOS(t, nil)
	c := NewClient(2 * time.Second)

	_, err := c.FetchEndpoint(context.Background(), target, "system/resource")
	if err == nil {
		t.Fatal("expected error on 404")
	}
	var ue *UnreachableError
	if !errors.As(err, &ue) {
		t.Fatalf("expected *UnreachableError, got %T", err)
	}
	if ue.Endpoint != "system/resource" {
		t.Errorf("endpoint = %q, want system/resource", ue.Endpoint)
	}
}

func TestFetchEndpointBadAuth(t *testing.T) {
	_, target := fakeRouterOS(t, map[string]string{
		"system/identity": `{"name":"RTR-01"}`,
	})
	target.Password = "wrong"
	c := NewClient(2 * time.Second)

	if _, err := c.FetchEndpoint(context.Background(), target, "system/identity"); err == nil {
		t.Fatal("expected error on bad credentials")
	}
}

func TestFetchEndpointUnreachableHost(t *testing.T) {
	c := NewClient(500 * time.Millisecond)
	target := Target{IP: "127.0.0.1", Port: "1", Username: "admin", Password: "secret"}

	_, err := c.FetchEndpoint(context.Background(), target, "interface")
	var ue *UnreachableError
	if !errors.As(err, &ue) {
		t.Fatalf("expected *UnreachableError, got %v", err)
	}
}

func TestFindInterfaceByComment(t *testing.T) {
	_, target := fakeRouterOS(t, map[string]string{
		"interface": `[
			{"name":"ether1","comment":"WAN1","running":"true"},
			{"name":"ether2","comment":"WAN2","running":"false"},
			{"name":"bridge1","comment":"","running":"true"}
		]`,
	})
	c := NewClient(2 * time.Second)

	iface, err := c.FindInterfaceByComment(context.Background(), target, "WAN2")
	if err != nil {
		t.Fatalf("FindInterfaceByComment: %v", err)
	}
	if iface == nil || iface.Name != "ether2" {
		t.Fatalf("iface = %+v, want ether2", iface)
	}
	if iface.Running {
		t.Error("ether2 should not be running")
	}

	// отсутствие пометки — не ошибка, просто nil
	iface, err = c.FindInterfaceByComment(context.Background(), target, "WAN3")
	if err != nil {
		t.Fatalf("unexpected error for missing comment: %v", err)
	}
	if iface != nil {
		t.Errorf("expected nil for unconfigured WAN3, got %+v", iface)
	}
}

func TestFetchAddressesEmpty(t *testing.T) {
	_, target := fakeRouterOS(t, map[string]string{
		"ip/address?interface=ether5": `[]`,
	})
	c := NewClient(2 * time.Second)

	addrs, err := c.FetchAddresses(context.Background(), target, "ether5")
	if err != nil {
		t.Fatalf("FetchAddresses: %v", err)
	}
	if len(addrs) != 0 {
		t.Errorf("expected empty address list, got %v", addrs)
	}
}

package gateway

import (
	"context"
	"errors"
	"testing"
	"time"
)

func fullHandlers() map[string]string {
	return map[string]string{
		"system/resource": `{"uptime":"1w2d","version":"7.14.2","cpu-load":"3","free-memory":"33554432","total-memory":"268435456"}`,
		"system/identity": `{"name":"RTR-01"}`,
		"system/clock":    `{"date":"2024-11-27","time":"10:45:03"}`,
		"interface":       `[{"name":"ether1","comment":"WAN1","running":"true"},{"name":"ether2","comment":"WAN2","running":"false"}]`,
		"tool/netwatch":   `[{"host":"8.8.8.8","comment":"WAN1","status":"up","since":"2024-11-27 09:00:00"},{"host":"1.1.1.1","comment":"WAN2","status":"down","since":"2024-11-27 10:00:00"}]`,
		"ip/address":      `[{"address":"10.0.0.2/24","interface":"ether1"}]`,
		"ip/arp":          `[]`,
	}
}

func TestFetchAllMergesEveryEndpoint(t *testing.T) {
	_, target := fakeRouterOS(t, fullHandlers())
	c := NewClient(2 * time.Second)

	snap, err := c.FetchAll(context.Background(), target)
	if err != nil {
		t.Fatalf("FetchAll: %v", err)
	}
	for _, ep := range snapshotEndpoints {
		if _, ok := snap[ep]; !ok {
			t.Errorf("snapshot missing key %q", ep)
		}
	}
	if len(snap) != len(snapshotEndpoints) {
		t.Errorf("snapshot has %d keys, want %d", len(snap), len(snapshotEndpoints))
	}
}

func TestFetchAllAtomicity(t *testing.T) {
	// один эндпойнт падает — падает весь агрегат, частичных снапшотов нет
	handlers := fullHandlers()
	delete(handlers, "ip/arp")
	_, target := fakeRouterOS(t, handlers)
	c := NewClient(2 * time.Second)

	snap, err := c.FetchAll(context.Background(), target)
	if err == nil {
		t.Fatal("expected aggregate failure")
	}
	var ue *UnreachableError
	if !errors.As(err, &ue) {
		t.Fatalf("expected *UnreachableError, got %T", err)
	}
	if snap != nil {
		t.Errorf("expected nil snapshot on failure, got %d keys", len(snap))
	}
}

func TestResolveWANAddress(t *testing.T) {
	handlers := fullHandlers()
	handlers["ip/address?interface=ether1"] = `[{"address":"10.0.0.2/24","interface":"ether1"}]`
	handlers["ip/address?interface=ether2"] = `[]`
	_, target := fakeRouterOS(t, handlers)
	c := NewClient(2 * time.Second)

	tests := []struct {
		label string
		want  WANInfo
	}{
		{"WAN1", WANInfo{Address: "10.0.0.2/24", Status: "Connected", Internet: "Up"}},
		{"WAN2", WANInfo{Address: "N/A", Status: "Disconnected", Internet: "Down"}},
		{"WAN3", WANInfo{Address: NotConfigured, Status: NotConfigured, Internet: NotConfigured}},
	}
	for _, tc := range tests {
		got, err := c.ResolveWANAddress(context.Background(), target, tc.label)
		if err != nil {
			t.Fatalf("%s: %v", tc.label, err)
		}
		if got != tc.want {
			t.Errorf("%s = %+v, want %+v", tc.label, got, tc.want)
		}
	}
}

func TestResolveNetwatch(t *testing.T) {
	_, target := fakeRouterOS(t, fullHandlers())
	c := NewClient(2 * time.Second)

	got, err := c.ResolveNetwatch(context.Background(), target, []string{"WAN1", "WAN2", "WAN3"})
	if err != nil {
		t.Fatalf("ResolveNetwatch: %v", err)
	}
	want := map[string]string{"WAN1": "up", "WAN2": "down", "WAN3": NotConfigured}
	for k, v := range want {
		if got[k] != v {
			t.Errorf("%s = %q, want %q", k, got[k], v)
		}
	}
}

func TestSnapshotSummary(t *testing.T) {
	_, target := fakeRouterOS(t, fullHandlers())
	c := NewClient(2 * time.Second)

	snap, err := c.FetchAll(context.Background(), target)
	if err != nil {
		t.Fatalf("FetchAll: %v", err)
	}
	sum := snap.Summary()
	if sum.Name != "RTR-01" {
		t.Errorf("Name = %q", sum.Name)
	}
	if sum.Date != "2024-11-27 10:45:03" {
		t.Errorf("Date = %q", sum.Date)
	}
	// 33554432 / 1048576 = 32.00, 268435456 / 1048576 = 256.00
	if sum.FreeMB != 32 {
		t.Errorf("FreeMB = %v, want 32", sum.FreeMB)
	}
	if sum.TotalMB != 256 {
		t.Errorf("TotalMB = %v, want 256", sum.TotalMB)
	}
}

func TestBytesToMBRounding(t *testing.T) {
	tests := []struct {
		in   string
		want float64
	}{
		{`"33554432"`, 32},
		{`123456789`, 117.74}, // 117.7375... → 117.74
		{`"garbage"`, 0},
		{``, 0},
	}
	for _, tc := range tests {
		if got := bytesToMB([]byte(tc.in)); got != tc.want {
			t.Errorf("bytesToMB(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

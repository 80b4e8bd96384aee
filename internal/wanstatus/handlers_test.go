package wanstatus

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strings"
	"testing"

	"github.com/gorilla/mux"
)

func setupWanHTTP(t *testing.T) *mux.Router {
	t.Helper()
	svc := NewService(NewRepo(testDB(t)), nil)
	r := mux.NewRouter()
	NewHTTP(svc).RegisterRoutes(r)
	return r
}

func TestReceiveAndList(t *testing.T) {
	r := setupWanHTTP(t)

	body := `{"identity":"RTR-01","comment":"WAN1","status":"down","since":"2024-11-27T10:45:03Z"}`
	req := httptest.NewRequest(http.MethodPost, "/wanstatus", strings.NewReader(body))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("POST status = %d, body %s", w.Code, w.Body.String())
	}
	var out struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatal(err)
	}
	if out.Message != "Data saved successfully" {
		t.Errorf("message = %q", out.Message)
	}

	req = httptest.NewRequest(http.MethodGet, "/wanstatus", nil)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("GET status = %d", w.Code)
	}

	var list struct {
		Message string `json:"message"`
		Data    []struct {
			Identity  string `json:"identity"`
			Comment   string `json:"comment"`
			Status    string `json:"status"`
			Since     string `json:"since"`
			CreatedAt string `json:"createdAt"`
		} `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &list); err != nil {
		t.Fatal(err)
	}
	if len(list.Data) != 1 {
		t.Fatalf("data len = %d, want 1", len(list.Data))
	}
	rec := list.Data[0]
	if rec.Identity != "RTR-01" || rec.Comment != "WAN1" || rec.Status != "down" {
		t.Errorf("record = %+v", rec)
	}
	if rec.Since != "27/11/2024, 10:45:03" {
		t.Errorf("since = %q, want display format", rec.Since)
	}
	// createdAt в формате dd/MM/yyyy, HH:mm:ss
	if ok, _ := regexp.MatchString(`^\d{2}/\d{2}/\d{4}, \d{2}:\d{2}:\d{2}$`, rec.CreatedAt); !ok {
		t.Errorf("createdAt = %q, want dd/MM/yyyy, HH:mm:ss", rec.CreatedAt)
	}
}

func TestReceiveValidation(t *testing.T) {
	r := setupWanHTTP(t)

	tests := []struct {
		name string
		body string
		want int
	}{
		{"invalid json", `{`, http.StatusBadRequest},
		{"missing identity", `{"comment":"WAN1","status":"up"}`, http.StatusBadRequest},
		{"missing status", `{"identity":"RTR-01","comment":"WAN1"}`, http.StatusBadRequest},
		{"valid", `{"identity":"RTR-01","comment":"WAN1","status":"up","since":"2024-11-27T10:45:03Z"}`, http.StatusOK},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/wanstatus", strings.NewReader(tc.body))
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			if w.Code != tc.want {
				t.Errorf("status = %d, want %d (body %s)", w.Code, tc.want, w.Body.String())
			}
		})
	}
}

// Повторный пуш того же статуса отвечает 200, но записи не плодит.
func TestReceiveDedup(t *testing.T) {
	r := setupWanHTTP(t)

	body := `{"identity":"RTR-01","comment":"WAN1","status":"up","since":"2024-11-27T10:45:03Z"}`
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodPost, "/wanstatus", strings.NewReader(body))
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		if w.Code != http.StatusOK {
			t.Fatalf("POST #%d status = %d", i, w.Code)
		}
	}

	req := httptest.NewRequest(http.MethodGet, "/wanstatus", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var list struct {
		Data []json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &list); err != nil {
		t.Fatal(err)
	}
	if len(list.Data) != 1 {
		t.Errorf("data len = %d, want 1 after repeated pushes", len(list.Data))
	}
}

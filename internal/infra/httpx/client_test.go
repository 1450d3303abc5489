package httpx

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestDoJSON_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Content-Type") != "application/json" {
			t.Errorf("missing json content type on request")
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"response":{"ok":true}}`))
	}))
	defer srv.Close()

	var out struct {
		Response struct {
			OK bool `json:"ok"`
		} `json:"response"`
	}
	c := NewClient(0)
	err := c.DoJSON(context.Background(), http.MethodPost, srv.URL, nil, map[string]string{"a": "b"}, &out)
	if err != nil {
		t.Fatalf("DoJSON failed: %v", err)
	}
	if !out.Response.OK {
		t.Error("expected decoded response.ok=true")
	}
}

func TestDoJSON_ErrorMessageExtraction(t *testing.T) {
	cases := []struct {
		name string
		body string
		want string
	}{
		{"message field", `{"message":"bad thing"}`, "bad thing"},
		{"errors array of strings", `{"errors":["first","second"]}`, "first, second"},
		{"errors array of objects", `{"errors":[{"message":"nested"}]}`, "nested"},
		{"detail string", `{"detail":"denied"}`, "denied"},
		{"opaque body", `{"x":1}`, "request failed with status 400"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusBadRequest)
				w.Write([]byte(tc.body))
			}))
			defer srv.Close()

			err := NewClient(0).DoJSON(context.Background(), http.MethodGet, srv.URL, nil, nil, nil)
			var he *Error
			if !errors.As(err, &he) {
				t.Fatalf("expected *httpx.Error, got %v", err)
			}
			if he.StatusCode() != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", he.StatusCode())
			}
			if he.Message != tc.want {
				t.Errorf("message = %q, want %q", he.Message, tc.want)
			}
		})
	}
}

func TestDoJSON_TimeoutHasNilStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	c := NewClient(20 * time.Millisecond)
	err := c.DoJSON(context.Background(), http.MethodGet, srv.URL, nil, nil, nil)
	var he *Error
	if !errors.As(err, &he) {
		t.Fatalf("expected *httpx.Error, got %v", err)
	}
	if he.Status != nil {
		t.Errorf("expected nil status for timeout, got %d", *he.Status)
	}
}

func TestDoJSON_ConnectionRefusedHasNilStatus(t *testing.T) {
	c := NewClient(time.Second)
	err := c.DoJSON(context.Background(), http.MethodGet, "http://127.0.0.1:1", nil, nil, nil)
	var he *Error
	if !errors.As(err, &he) {
		t.Fatalf("expected *httpx.Error, got %v", err)
	}
	if he.Status != nil {
		t.Errorf("expected nil status for connection failure, got %d", *he.Status)
	}
}

func TestDoJSON_NonJSONSuccessBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html>hi</html>"))
	}))
	defer srv.Close()

	var out map[string]any
	err := NewClient(0).DoJSON(context.Background(), http.MethodGet, srv.URL, nil, nil, &out)
	var he *Error
	if !errors.As(err, &he) {
		t.Fatalf("expected *httpx.Error, got %v", err)
	}
	if he.Message != "unexpected non-JSON response" {
		t.Errorf("message = %q", he.Message)
	}
}

package remnawave

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"telegram-vpn-subscription/internal/domain/ports/adapter"
)

func testLogger() *zerolog.Logger {
	l := zerolog.Nop()
	return &l
}

func TestCreateUser(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/users" || r.Method != http.MethodPost {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer key-1" {
			t.Errorf("missing bearer token")
		}
		var req adapter.CreateUserRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode payload: %v", err)
		}
		if req.TrafficLimitStrategy != "NO_RESET" {
			t.Errorf("strategy = %q", req.TrafficLimitStrategy)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		fmt.Fprintf(w, `{"response":{"uuid":"u-1","username":%q,"subscriptionUrl":"https://sub/abc"}}`, req.Username)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "key-1", time.Second, testLogger())
	u, err := c.CreateUser(context.Background(), adapter.CreateUserRequest{
		Username:             "wavy_1234_ab12",
		Status:               "ACTIVE",
		TrafficLimitStrategy: "NO_RESET",
	})
	if err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}
	if u.SubscriptionURL != "https://sub/abc" {
		t.Errorf("subscription url = %q", u.SubscriptionURL)
	}
}

func TestListUsers_Paginated(t *testing.T) {
	const total = 230 // 3 pages at size 100
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start, _ := strconv.Atoi(r.URL.Query().Get("start"))
		n := listPageSize
		if start+n > total {
			n = total - start
		}
		users := make([]adapter.UpstreamUser, 0, n)
		for i := 0; i < n; i++ {
			users = append(users, adapter.UpstreamUser{Username: fmt.Sprintf("u%d", start+i)})
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"response": map[string]any{"total": total, "users": users},
		})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "k", time.Second, testLogger())
	users, err := c.ListUsers(context.Background())
	if err != nil {
		t.Fatalf("ListUsers failed: %v", err)
	}
	if len(users) != total {
		t.Errorf("got %d users, want %d", len(users), total)
	}
}

func TestListUsers_ToleratesPageFailures(t *testing.T) {
	const total = 250
	var calls int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&calls, 1)
		start, _ := strconv.Atoi(r.URL.Query().Get("start"))
		if start == 100 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		n := listPageSize
		if start+n > total {
			n = total - start
		}
		users := make([]adapter.UpstreamUser, n)
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"response": map[string]any{"total": total, "users": users},
		})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "k", time.Second, testLogger())
	users, err := c.ListUsers(context.Background())
	if err != nil {
		t.Fatalf("ListUsers failed: %v", err)
	}
	// Page at offset 100 dropped, the rest kept.
	if len(users) != total-listPageSize {
		t.Errorf("got %d users, want %d", len(users), total-listPageSize)
	}
	if atomic.LoadInt64(&calls) != 3 {
		t.Errorf("expected 3 page fetches, got %d", calls)
	}
}

func TestListUsers_SinglePage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"response":{"total":2,"users":[{"username":"a"},{"username":"b"}]}}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "k", time.Second, testLogger())
	users, err := c.ListUsers(context.Background())
	if err != nil {
		t.Fatalf("ListUsers failed: %v", err)
	}
	if len(users) != 2 {
		t.Errorf("got %d users, want 2", len(users))
	}
}

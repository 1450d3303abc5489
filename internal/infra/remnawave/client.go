package remnawave

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"telegram-vpn-subscription/internal/domain/ports/adapter"
	"telegram-vpn-subscription/internal/infra/httpx"
)

const (
	listPageSize    = 100
	listConcurrency = 5
)

var _ adapter.UpstreamGateway = (*Client)(nil)

// Client talks to the Remnawave panel API.
type Client struct {
	baseURL string
	apiKey  string
	http    *httpx.Client
	log     *zerolog.Logger
}

func NewClient(apiURL, apiKey string, timeout time.Duration, logger *zerolog.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(apiURL, "/"),
		apiKey:  apiKey,
		http:    httpx.NewClient(timeout),
		log:     logger,
	}
}

func (c *Client) headers() map[string]string {
	return map[string]string{"Authorization": "Bearer " + c.apiKey}
}

type createUserResponse struct {
	Response *adapter.UpstreamUser `json:"response"`
}

// CreateUser provisions an account and returns it. A 2xx response without a
// subscription URL violates the payload contract and is reported as an error
// by the caller; this layer only surfaces transport results.
func (c *Client) CreateUser(ctx context.Context, req adapter.CreateUserRequest) (*adapter.UpstreamUser, error) {
	var out createUserResponse
	err := c.http.DoJSON(ctx, http.MethodPost, c.baseURL+"/api/users", c.headers(), req, &out)
	if err != nil {
		return nil, err
	}
	return out.Response, nil
}

type listUsersPage struct {
	Response struct {
		Total int                    `json:"total"`
		Users []adapter.UpstreamUser `json:"users"`
	} `json:"response"`
}

// ListUsers fetches every provisioned account. The first page yields the
// total; remaining pages are fetched with bounded concurrency. Individual
// page failures are logged and excluded, partial results are preferable to
// none on this reporting-only path.
func (c *Client) ListUsers(ctx context.Context) ([]adapter.UpstreamUser, error) {
	first, err := c.fetchPage(ctx, 0)
	if err != nil {
		return nil, err
	}
	total := first.Response.Total
	users := first.Response.Users
	if total <= len(users) {
		return users, nil
	}

	var (
		mu  sync.Mutex
		wg  sync.WaitGroup
		sem = make(chan struct{}, listConcurrency)
	)
	for start := listPageSize; start < total; start += listPageSize {
		wg.Add(1)
		go func(start int) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			page, err := c.fetchPage(ctx, start)
			if err != nil {
				c.log.Warn().Err(err).Int("start", start).Msg("remnawave: list page failed, skipping")
				return
			}
			mu.Lock()
			users = append(users, page.Response.Users...)
			mu.Unlock()
		}(start)
	}
	wg.Wait()
	return users, nil
}

func (c *Client) fetchPage(ctx context.Context, start int) (*listUsersPage, error) {
	var out listUsersPage
	url := fmt.Sprintf("%s/api/users?size=%d&start=%d", c.baseURL, listPageSize, start)
	if err := c.http.DoJSON(ctx, http.MethodGet, url, c.headers(), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

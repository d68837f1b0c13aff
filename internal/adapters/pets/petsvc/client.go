package petsvc

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"pet-health-records/internal/platform/httpclient"
)

var (
	ErrNotConfigured = errors.New("pet service client not configured")

	// errNotFound: respuesta 404 explícita del upstream. El resolver lo
	// traduce a pets.ErrNotFound.
	errNotFound = errors.New("pet not found upstream")
)

// Config del cliente del servicio de mascotas.
// BaseURL y APIKey normalmente vienen de env vars.
type Config struct {
	BaseURL string
	APIKey  string

	// Opcional: header para la API key. Vacío => "X-Api-Key".
	APIKeyHeader string

	// Timeout por llamada.
	Timeout time.Duration
}

type Client struct {
	http         *httpclient.Client
	apiKey       string
	apiKeyHeader string
}

func NewClient(cfg Config) (*Client, error) {
	h := strings.TrimSpace(cfg.APIKeyHeader)
	if h == "" {
		h = "X-Api-Key"
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	hc, err := httpclient.NewWithBaseURL(strings.TrimSpace(cfg.BaseURL), timeout)
	if err != nil {
		return nil, err
	}

	return &Client{
		http:         hc,
		apiKey:       strings.TrimSpace(cfg.APIKey),
		apiKeyHeader: h,
	}, nil
}

func (c *Client) IsConfigured() bool {
	return c != nil && c.http != nil && strings.TrimSpace(c.http.BaseURL) != ""
}

type petResponse struct {
	ID      string `json:"id"`
	OwnerID string `json:"owner_id"`
}

// FetchPet resuelve un pet por ID contra el servicio de mascotas.
// 404 explícito => errNotFound; cualquier otro fallo (timeout, red, 5xx)
// => error de upstream, que el resolver traduce a "unavailable".
func (c *Client) FetchPet(ctx context.Context, petID string) (petResponse, error) {
	if !c.IsConfigured() {
		return petResponse{}, ErrNotConfigured
	}

	headers := map[string]string{}
	if c.apiKey != "" {
		headers[c.apiKeyHeader] = c.apiKey
	}

	var out petResponse
	err := c.http.GetJSON(ctx, "/pets/"+url.PathEscape(petID), headers, &out)
	if err != nil {
		var httpErr *httpclient.HTTPError
		if errors.As(err, &httpErr) && httpErr.StatusCode == http.StatusNotFound {
			return petResponse{}, errNotFound
		}
		return petResponse{}, fmt.Errorf("pet service upstream: %w", err)
	}

	out.ID = strings.TrimSpace(out.ID)
	out.OwnerID = strings.TrimSpace(out.OwnerID)
	if out.ID == "" {
		return petResponse{}, errors.New("pet service response missing id")
	}
	return out, nil
}

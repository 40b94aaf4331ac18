package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"net/url"
	"strings"
	"time"

	"sortable/internal"
	"sortable/internal/config"
	"sortable/internal/util"
)

// Client pulls canonical products from a remote catalog API. The API
// pages with a scroll id; pages are fetched with a client-side rate
// limit and retried on transient status codes.
type Client struct {
	cfg        config.Config
	httpClient *http.Client
	limiter    *RateLimiter
}

type apiResponse struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Errors  json.RawMessage `json:"errors"`
	Data    json.RawMessage `json:"data"`
}

type scrollPayload struct {
	Products []map[string]any `json:"products"`
	ScrollID *string          `json:"scrollId"`
	Total    *int             `json:"total"`
}

func NewClient(cfg config.Config) *Client {
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: time.Duration(cfg.CatalogTimeoutMs) * time.Millisecond},
		limiter:    NewRateLimiter(cfg.CatalogRateLimitRPS),
	}
}

func (c *Client) GetProductsScrollAll(ctx context.Context) ([]internal.Product, error) {
	all := make([]internal.Product, 0)
	seen := map[string]struct{}{}
	var scrollID string

	for {
		query := map[string]string{}
		if scrollID != "" {
			query["scrollId"] = scrollID
		}

		body, err := c.fetchJSON(ctx, "product/scroll", query)
		if err != nil {
			return nil, err
		}

		var payload scrollPayload
		if err := json.Unmarshal(body, &payload); err != nil {
			return nil, err
		}

		for _, raw := range payload.Products {
			product, err := toProduct(raw)
			if err != nil {
				continue
			}
			all = append(all, product)
		}

		if payload.ScrollID == nil || *payload.ScrollID == "" || len(payload.Products) == 0 {
			break
		}
		if _, ok := seen[*payload.ScrollID]; ok {
			break
		}
		seen[*payload.ScrollID] = struct{}{}
		scrollID = *payload.ScrollID
	}

	return all, nil
}

func (c *Client) fetchJSON(ctx context.Context, endpoint string, params map[string]string) ([]byte, error) {
	if strings.TrimSpace(c.cfg.CatalogAPIBaseURL) == "" {
		return nil, errors.New("missing CATALOG_API_BASE_URL")
	}
	if strings.TrimSpace(c.cfg.CatalogAPIToken) == "" {
		return nil, errors.New("missing CATALOG_API_TOKEN")
	}

	baseURL := strings.TrimRight(c.cfg.CatalogAPIBaseURL, "/") + "/"
	u, err := url.Parse(baseURL + endpoint)
	if err != nil {
		return nil, err
	}

	q := u.Query()
	for k, v := range params {
		if strings.TrimSpace(v) != "" {
			q.Set(k, v)
		}
	}
	u.RawQuery = q.Encode()

	var lastErr error
	for attempt := 1; attempt <= 5; attempt++ {
		c.limiter.WaitTurn()

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Authorization", "Bearer "+c.cfg.CatalogAPIToken)
		req.Header.Set("Accept", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = err
			continue
		}

		body, readErr := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		if readErr != nil {
			lastErr = readErr
			continue
		}

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			if isRetryableStatus(resp.StatusCode) && attempt < 5 {
				backoff := time.Duration(250*(1<<(attempt-1))+rand.Intn(100)) * time.Millisecond
				time.Sleep(backoff)
				lastErr = fmt.Errorf("catalog status %d", resp.StatusCode)
				continue
			}
			return nil, fmt.Errorf("catalog api error: status=%d body=%s", resp.StatusCode, string(body))
		}

		var apiResp apiResponse
		if err := json.Unmarshal(body, &apiResp); err != nil {
			return nil, err
		}
		if !apiResp.Success {
			return nil, fmt.Errorf("catalog api unsuccessful: %s", string(apiResp.Errors))
		}
		return apiResp.Data, nil
	}

	if lastErr == nil {
		lastErr = errors.New("catalog request failed")
	}
	return nil, lastErr
}

func isRetryableStatus(status int) bool {
	switch status {
	case 429, 500, 502, 503, 504:
		return true
	default:
		return false
	}
}

func toProduct(raw map[string]any) (internal.Product, error) {
	name, _ := raw["product_name"].(string)
	name = strings.TrimSpace(name)
	if name == "" {
		return internal.Product{}, errors.New("empty product_name")
	}

	product := internal.Product{ProductName: name}
	product.Manufacturer = toStringPtr(raw["manufacturer"])
	product.Family = toStringPtr(raw["family"])
	product.Model = toStringPtr(raw["model"])
	product.AnnouncedDate = toStringPtr(raw["announced-date"])

	return product, nil
}

func toStringPtr(v any) *string {
	s, ok := v.(string)
	if !ok {
		return nil
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return util.StringPtr(s)
}

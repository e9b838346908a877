package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"civitai/harvester/internal/config"
	"civitai/harvester/internal/domain"
	"civitai/harvester/internal/proxy"
	"civitai/harvester/internal/repository"

	"github.com/dustin/go-humanize"
	log "github.com/sirupsen/logrus"
	"go.uber.org/ratelimit"
	"resty.dev/v3"
)

// FetchResult describes one fetched catalog page.
type FetchResult struct {
	Cursor     string
	NextCursor string
	Items      int
	Bytes      int
	Path       string
}

type CivitaiClient interface {
	// FetchPage requests the page at cursor ("" for the first page), persists
	// the raw body and returns the cursor of the following page. When the
	// response carries no cursor the result is returned with
	// domain.ErrEndOfStream.
	FetchPage(ctx context.Context, cursor string, params domain.PageParams) (*FetchResult, error)
}

type civitaiClient struct {
	rl            ratelimit.Limiter
	config        config.CivitaiConfig
	baseURL       string
	httpClient    *resty.Client
	proxySupplier proxy.ProxySupplier
	pages         repository.PageStore
}

// pageResponse is the part of the catalog response the walker needs. Items
// are left raw and decoded from the persisted page by the readers.
type pageResponse struct {
	Items    []json.RawMessage   `json:"items"`
	Metadata domain.PageMetadata `json:"metadata"`
}

func NewCivitaiClient(cfg config.CivitaiConfig, proxySupplier proxy.ProxySupplier, pages repository.PageStore) CivitaiClient {
	client := resty.New().
		SetTimeout(time.Duration(cfg.Timeout)*time.Second).
		SetRetryCount(cfg.MaxRetries).
		SetRetryWaitTime(2*time.Second).
		SetRetryMaxWaitTime(10*time.Second).
		SetHeader("User-Agent", "civitai-harvester/1.0").
		SetHeader("Accept", "application/json")

	if proxySupplier != nil {
		if proxyURL := proxySupplier.Get(); proxyURL != "" {
			client.SetProxy(proxyURL)
			log.Infof("🔗 Using initial proxy: %s", proxyURL)
		}
	}

	return &civitaiClient{
		rl:            ratelimit.New(cfg.MaxRequestsPerSecond),
		config:        cfg,
		baseURL:       cfg.BaseURL,
		httpClient:    client,
		proxySupplier: proxySupplier,
		pages:         pages,
	}
}

func (c *civitaiClient) FetchPage(ctx context.Context, cursor string, params domain.PageParams) (*FetchResult, error) {
	if params.Limit <= 0 {
		return nil, fmt.Errorf("%w: limit must be positive, got %d", domain.ErrInvalidParams, params.Limit)
	}

	query := map[string]string{
		"limit": strconv.Itoa(params.Limit),
		"nsfw":  strconv.FormatBool(params.NSFW),
	}
	if cursor != "" {
		query["cursor"] = cursor
	}

	log.Infof("Requesting with cursor %q and params %v ...", cursor, query)

	body, err := c.fetchJSON(ctx, query)
	if err != nil {
		return nil, err
	}

	var resp pageResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("%w: catalog response: %v", domain.ErrMalformedDocument, err)
	}

	path, err := c.pages.SavePage(cursor, body)
	if err != nil {
		return nil, fmt.Errorf("failed to persist page: %w", err)
	}

	result := &FetchResult{
		Cursor: cursor,
		Items:  len(resp.Items),
		Bytes:  len(body),
		Path:   path,
	}
	log.Infof("Fetched %d images (%s). Saved result to %s", result.Items, humanize.Bytes(uint64(result.Bytes)), path)

	next := resp.Metadata.NextCursor.OrDefault("")
	if next == "" {
		return result, domain.ErrEndOfStream
	}

	result.NextCursor = domain.ContinuationCursor(next)
	return result, nil
}

func (c *civitaiClient) fetchJSON(ctx context.Context, query map[string]string) ([]byte, error) {
	c.rl.Take()

	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetQueryParams(query).
		Get(c.baseURL)

	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("request cancelled: %w", ctx.Err())
		}
		return nil, fmt.Errorf("failed to fetch URL: %w", err)
	}

	if !resp.IsSuccess() {
		if resp.StatusCode() == http.StatusTooManyRequests {
			c.rotateProxy()
		}
		return nil, &domain.TransportError{
			StatusCode: resp.StatusCode(),
			Status:     resp.Status(),
			URL:        c.baseURL,
		}
	}

	return resp.Bytes(), nil
}

func (c *civitaiClient) rotateProxy() {
	log.Warnf("🚫 Rate limit exceeded for %s", c.baseURL)
	if c.proxySupplier == nil || c.proxySupplier.Len() < 2 {
		return
	}
	if newProxy := c.proxySupplier.Get(); newProxy != "" {
		log.Infof("🔄 Switching to new proxy: %s", newProxy)
		c.httpClient.SetProxy(newProxy)
	}
}

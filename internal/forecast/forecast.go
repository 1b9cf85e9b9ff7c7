// Package forecast fetches and parses multi-block forecasts from the Open-Meteo API.
package forecast

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"

	"github.com/kjstillabower/weather-report-service/internal/cache"
	"github.com/kjstillabower/weather-report-service/internal/client"
	"github.com/kjstillabower/weather-report-service/internal/models"
	"github.com/kjstillabower/weather-report-service/internal/observability"
)

// Service names the forecast upstream in metrics, logs and errors.
const Service = "forecast"

const (
	DefaultURL = "https://api.open-meteo.com/v1/forecast"
	DefaultTTL = 30 * time.Minute
)

// Config holds the forecast endpoint and cache lifetime. Zero values take the defaults.
type Config struct {
	URL    string
	TTL    time.Duration
	Fields *Fields
}

// Client fetches forecasts for a point, serving repeats from the cache for TTL.
type Client struct {
	http   *client.Client
	loader *cache.Loader
	url    string
	ttl    time.Duration
	fields Fields
}

// NewClient builds a Client over the shared upstream transport and cache loader.
func NewClient(httpClient *client.Client, loader *cache.Loader, cfg Config) *Client {
	c := &Client{
		http:   httpClient,
		loader: loader,
		url:    cfg.URL,
		ttl:    cfg.TTL,
		fields: DefaultFields,
	}
	if c.url == "" {
		c.url = DefaultURL
	}
	if c.ttl <= 0 {
		c.ttl = DefaultTTL
	}
	if cfg.Fields != nil {
		c.fields = *cfg.Fields
	}
	return c
}

// Fetch returns the forecast for point. metric selects SI units; otherwise
// temperature, wind and precipitation are imperial. Non-2xx responses fail with
// *client.FetchError and malformed bodies with *client.ParseError; neither is cached.
func (c *Client) Fetch(ctx context.Context, point models.Point, metric bool) (*Snapshot, error) {
	key := cache.Fingerprint(Service, point.Lat, point.Lon, metric)

	var fresh *Snapshot
	body, err := c.loader.Load(ctx, Service, key, c.ttl, func(ctx context.Context) ([]byte, error) {
		snap, body, err := c.fetch(ctx, point, metric)
		if err != nil {
			client.RecordFailure(Service, err)
			return nil, err
		}
		fresh = snap
		return body, nil
	})
	if err != nil {
		return nil, err
	}
	if fresh != nil {
		return fresh, nil
	}
	return Parse(body)
}

func (c *Client) fetch(ctx context.Context, point models.Point, metric bool) (*Snapshot, []byte, error) {
	reqURL, err := c.requestURL(point, metric)
	if err != nil {
		return nil, nil, err
	}
	observability.LoggerFromContext(ctx).Info("fetching forecast",
		zap.String("point", point.String()),
		zap.Bool("metric", metric),
	)

	resp, err := c.http.Get(ctx, reqURL, http.Header{"Accept": []string{"application/json"}})
	if err != nil {
		return nil, nil, err
	}
	if !resp.OK() {
		return nil, nil, &client.FetchError{
			Service: Service,
			URL:     reqURL,
			Status:  resp.StatusCode,
			Body:    string(resp.Body),
		}
	}
	snap, err := Parse(resp.Body)
	if err != nil {
		return nil, nil, err
	}
	return snap, resp.Body, nil
}

func (c *Client) requestURL(point models.Point, metric bool) (string, error) {
	u, err := url.Parse(c.url)
	if err != nil {
		return "", fmt.Errorf("invalid forecast URL: %w", err)
	}
	q := u.Query()
	q.Set("latitude", models.FormatCoord(point.Lat))
	q.Set("longitude", models.FormatCoord(point.Lon))
	for _, p := range c.fields.params() {
		q.Set(p[0], p[1])
	}
	if !metric {
		for _, p := range imperialUnits {
			q.Set(p[0], p[1])
		}
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// Package alerts fetches active NWS hazard alerts for a point and condenses
// them into short bulletin text.
package alerts

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"github.com/kjstillabower/weather-report-service/internal/cache"
	"github.com/kjstillabower/weather-report-service/internal/client"
	"github.com/kjstillabower/weather-report-service/internal/models"
	"github.com/kjstillabower/weather-report-service/internal/observability"
)

// Service names the alerts upstream in metrics, logs and errors.
const Service = "alerts"

const (
	DefaultURL = "https://api.weather.gov/alerts/active"
	DefaultTTL = 5 * time.Minute

	// OutOfBoundsTitle is the title of the empty envelope returned for points
	// outside NWS coverage.
	OutOfBoundsTitle = `Parameter "point" is invalid: out of bounds`
)

var outOfBoundsMarker = []byte("out of bounds")

// Config holds the alerts endpoint and cache lifetime. Zero values take the defaults.
type Config struct {
	URL   string
	TTL   time.Duration
	Clock clockwork.Clock
}

// Client fetches active alerts for a point, serving repeats from the cache for TTL.
type Client struct {
	http   *client.Client
	loader *cache.Loader
	url    string
	ttl    time.Duration
	clock  clockwork.Clock
}

// NewClient builds a Client over the shared upstream transport and cache loader.
func NewClient(httpClient *client.Client, loader *cache.Loader, cfg Config) *Client {
	c := &Client{
		http:   httpClient,
		loader: loader,
		url:    cfg.URL,
		ttl:    cfg.TTL,
		clock:  cfg.Clock,
	}
	if c.url == "" {
		c.url = DefaultURL
	}
	if c.ttl <= 0 {
		c.ttl = DefaultTTL
	}
	if c.clock == nil {
		c.clock = clockwork.NewRealClock()
	}
	return c
}

// Fetch returns the active alerts for point. A 400 whose body mentions
// "out of bounds" yields an empty envelope, cached like any other answer.
// Every other non-2xx fails with *client.FetchError.
func (c *Client) Fetch(ctx context.Context, point models.Point) (*Envelope, error) {
	key := cache.Fingerprint(Service, point.Lat, point.Lon)

	body, err := c.loader.Load(ctx, Service, key, c.ttl, func(ctx context.Context) ([]byte, error) {
		body, err := c.fetch(ctx, point)
		if err != nil {
			client.RecordFailure(Service, err)
			return nil, err
		}
		return body, nil
	})
	if err != nil {
		return nil, err
	}
	return Parse(body)
}

func (c *Client) fetch(ctx context.Context, point models.Point) ([]byte, error) {
	reqURL, err := c.requestURL(point)
	if err != nil {
		return nil, err
	}
	observability.LoggerFromContext(ctx).Info("fetching alerts", zap.String("point", point.String()))

	resp, err := c.http.Get(ctx, reqURL, http.Header{"Accept": []string{"application/ld+json"}})
	if err != nil {
		return nil, err
	}
	return c.resolve(ctx, reqURL, resp)
}

// resolve turns an upstream response into a cacheable body or a fatal error.
func (c *Client) resolve(ctx context.Context, reqURL string, resp client.Response) ([]byte, error) {
	switch {
	case resp.OK():
		if _, err := Parse(resp.Body); err != nil {
			return nil, err
		}
		return resp.Body, nil
	case resp.StatusCode == http.StatusBadRequest && bytes.Contains(resp.Body, outOfBoundsMarker):
		observability.LoggerFromContext(ctx).Info("point outside alert coverage, using empty envelope",
			zap.String("url", reqURL))
		return json.Marshal(c.outOfBounds())
	default:
		return nil, &client.FetchError{
			Service: Service,
			URL:     reqURL,
			Status:  resp.StatusCode,
			Body:    string(resp.Body),
		}
	}
}

func (c *Client) outOfBounds() Envelope {
	return Envelope{
		Context: json.RawMessage(`{"@version":"1.1"}`),
		Graph:   []Record{},
		Title:   OutOfBoundsTitle,
		Updated: c.clock.Now().Format(time.RFC3339),
	}
}

func (c *Client) requestURL(point models.Point) (string, error) {
	u, err := url.Parse(c.url)
	if err != nil {
		return "", fmt.Errorf("invalid alerts URL: %w", err)
	}
	u.RawQuery = "point=" + point.String()
	return u.String(), nil
}

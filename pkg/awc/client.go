// Package awc is a client for the aviationweather.gov data API, covering
// the METAR and TAF endpoints in JSON format.
package awc

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"

	"github.com/skyward-data/flightwx-cli/internal/resilience"
)

const defaultBaseURL = "https://aviationweather.gov/api/data"

// Options configures the client.
type Options struct {
	BaseURL    string
	UserAgent  string
	Timeout    time.Duration
	RatePerSec float64
	Burst      int
	Retry      resilience.RetryConfig
}

// Client calls the aviation weather data API.
type Client struct {
	baseURL    string
	userAgent  string
	httpClient *http.Client
	limiter    *rate.Limiter
	retry      resilience.RetryConfig
}

// NewClient creates a client with the given options.
func NewClient(opts Options) *Client {
	if opts.BaseURL == "" {
		opts.BaseURL = defaultBaseURL
	}
	if opts.UserAgent == "" {
		opts.UserAgent = "flightwx/1.0"
	}
	if opts.Timeout == 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.RatePerSec == 0 {
		opts.RatePerSec = 2
	}
	if opts.Burst == 0 {
		opts.Burst = 1
	}
	if opts.Retry.MaxAttempts == 0 {
		opts.Retry = resilience.DefaultRetryConfig()
	}

	return &Client{
		baseURL:    strings.TrimRight(opts.BaseURL, "/"),
		userAgent:  opts.UserAgent,
		httpClient: &http.Client{Timeout: opts.Timeout},
		limiter:    rate.NewLimiter(rate.Limit(opts.RatePerSec), opts.Burst),
		retry:      opts.Retry,
	}
}

// Metars fetches observations for the given ICAO stations covering the
// past `hours` hours. Stations unknown to the API simply return no rows.
func (c *Client) Metars(ctx context.Context, stations []string, hours int) ([]Metar, error) {
	if len(stations) == 0 {
		return nil, nil
	}
	if hours <= 0 {
		hours = 2
	}

	params := url.Values{
		"ids":    {strings.Join(stations, ",")},
		"format": {"json"},
		"hours":  {strconv.Itoa(hours)},
	}

	var metars []Metar
	if err := c.getJSON(ctx, "/metar", params, &metars); err != nil {
		return nil, eris.Wrap(err, "awc: metar")
	}
	return metars, nil
}

// Tafs fetches the current TAF bulletins for the given ICAO stations.
func (c *Client) Tafs(ctx context.Context, stations []string) ([]Taf, error) {
	if len(stations) == 0 {
		return nil, nil
	}

	params := url.Values{
		"ids":    {strings.Join(stations, ",")},
		"format": {"json"},
	}

	var tafs []Taf
	if err := c.getJSON(ctx, "/taf", params, &tafs); err != nil {
		return nil, eris.Wrap(err, "awc: taf")
	}
	return tafs, nil
}

func (c *Client) getJSON(ctx context.Context, endpoint string, params url.Values, out any) error {
	reqURL := c.baseURL + endpoint + "?" + params.Encode()

	body, err := resilience.DoVal(ctx, c.retry, func(ctx context.Context) ([]byte, error) {
		return c.get(ctx, reqURL)
	})
	if err != nil {
		return err
	}

	if err := json.Unmarshal(body, out); err != nil {
		return eris.Wrap(err, "parse response")
	}
	return nil
}

func (c *Client) get(ctx context.Context, reqURL string) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "rate limit")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, eris.Wrap(err, "build request")
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "request")
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		err := eris.Errorf("status %d from %s", resp.StatusCode, reqURL)
		if resilience.IsTransientHTTPStatus(resp.StatusCode) {
			return nil, resilience.NewTransientError(err, resp.StatusCode)
		}
		return nil, err
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "read body")
	}
	return body, nil
}

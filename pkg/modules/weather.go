package modules

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/jcs/sdorfehs-bar/pkg/bar"
	"github.com/jcs/sdorfehs-bar/pkg/cache"
	"github.com/jcs/sdorfehs-bar/pkg/markup"
	"github.com/jcs/sdorfehs-bar/pkg/theme"
)

const nwsBaseURL = "https://api.weather.gov"

// Observation is one station reading, in the shape the cache stores.
type Observation struct {
	Station     string  `json:"station"`
	TempC       float64 `json:"temp_c"`
	Description string  `json:"description"`
}

// WeatherClient fetches the latest observation for a station.
type WeatherClient interface {
	Observation(ctx context.Context, station string) (*Observation, error)
}

// WeatherConfig configures the weather module.
type WeatherConfig struct {
	// Station is the observation station identifier, e.g. KORD.
	Station string

	// Units is C or F.
	Units string

	// Client overrides the weather service client.
	Client WeatherClient

	// Cache, when set, keeps the last observation across restarts. TTL is
	// the freshness window; within it no request is made at all.
	Cache *cache.Store
	TTL   time.Duration
}

// Weather shows the latest station observation from the national weather
// service. Readings are disk-cached so a restart repaints immediately, and
// a failed poll falls back to the previous reading marked stale.
type Weather struct {
	station string
	units   string
	client  WeatherClient
	cache   *cache.Store
	ttl     time.Duration
}

func NewWeather(cfg WeatherConfig) *Weather {
	if cfg.Client == nil {
		cfg.Client = NewNWSClient(nil)
	}
	units := strings.ToUpper(cfg.Units)
	if units != "F" {
		units = "C"
	}
	if cfg.TTL <= 0 {
		cfg.TTL = 15 * time.Minute
	}
	return &Weather{
		station: cfg.Station,
		units:   units,
		client:  cfg.Client,
		cache:   cfg.Cache,
		ttl:     cfg.TTL,
	}
}

func (w *Weather) Name() string { return "weather" }

func (w *Weather) cacheKey() string { return "weather:" + w.station }

func (w *Weather) Render(ctx context.Context, v bar.View) (string, error) {
	if w.cache != nil {
		if obs, ok := cache.GetTyped[Observation](w.cache, w.cacheKey()); ok {
			return w.format(obs, v.Palette, false), nil
		}
	}

	obs, err := w.client.Observation(ctx, w.station)
	if err != nil {
		if w.cache != nil {
			if stale, _, ok := cache.GetTypedStale[Observation](w.cache, w.cacheKey()); ok {
				return w.format(stale, v.Palette, true), nil
			}
		}
		return "", err
	}
	if w.cache != nil {
		_ = cache.PutTyped(w.cache, w.cacheKey(), *obs, w.ttl)
	}
	return w.format(*obs, v.Palette, false), nil
}

func (w *Weather) format(obs Observation, p theme.Palette, stale bool) string {
	temp := obs.TempC
	if w.units == "F" {
		temp = temp*9/5 + 32
	}
	out := fmt.Sprintf("%.0f%s", temp, w.units)
	if obs.Description != "" {
		out += " " + markup.Fg(p.Dim, obs.Description)
	}
	if stale {
		out = markup.Fg(p.Dim, "~") + out
	}
	return out
}

// nwsResponse is the wire shape of the latest-observation endpoint. The
// temperature value is null when the station has no current reading.
type nwsResponse struct {
	Properties struct {
		Temperature struct {
			Value *float64 `json:"value"`
		} `json:"temperature"`
		TextDescription string `json:"textDescription"`
	} `json:"properties"`
}

// NWSClient talks to the api.weather.gov observations endpoint.
type NWSClient struct {
	base string
	http *http.Client
}

// NewNWSClient creates a client. A nil httpClient gets one with a request
// timeout suited to a background poller.
func NewNWSClient(httpClient *http.Client) *NWSClient {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &NWSClient{base: nwsBaseURL, http: httpClient}
}

func (c *NWSClient) Observation(ctx context.Context, station string) (*Observation, error) {
	endpoint := fmt.Sprintf("%s/stations/%s/observations/latest", c.base, url.PathEscape(station))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("weather: build request: %w", err)
	}
	// The weather service requires an identifying agent.
	req.Header.Set("User-Agent", "sdorfehs-bar (github.com/jcs/sdorfehs-bar)")
	req.Header.Set("Accept", "application/geo+json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("weather: fetch %s: %w", station, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("weather: station %s: %s", station, resp.Status)
	}

	var body nwsResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("weather: decode observation: %w", err)
	}
	if body.Properties.Temperature.Value == nil {
		return nil, fmt.Errorf("weather: station %s reported no temperature", station)
	}
	return &Observation{
		Station:     station,
		TempC:       *body.Properties.Temperature.Value,
		Description: body.Properties.TextDescription,
	}, nil
}

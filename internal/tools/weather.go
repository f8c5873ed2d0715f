// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package tools

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/goccy/go-json"
	"golang.org/x/time/rate"
)

// WeatherToolName is the name the model calls the weather tool by.
const WeatherToolName = "getWeather"

// DefaultWeatherURL is the Open-Meteo forecast endpoint.
const DefaultWeatherURL = "https://api.open-meteo.com/v1/forecast"

// Outbound request budget towards the forecast service.
const (
	DefaultWeatherRate  = 10
	DefaultWeatherBurst = 10
)

// maxWeatherResponse caps the forecast body (1MB).
const maxWeatherResponse = 1024 * 1024

// weatherHTTPClient is shared across calls; the per-call deadline comes
// from the executor's context.
var weatherHTTPClient = &http.Client{
	Transport: &http.Transport{
		MaxIdleConns:        10,
		MaxIdleConnsPerHost: 4,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
	},
}

// WeatherExecutor fetches a forecast for a coordinate.
type WeatherExecutor struct {
	baseURL string
	client  *http.Client
	limiter *rate.Limiter
}

// NewWeatherExecutor creates a weather executor for the forecast endpoint
// at baseURL. An empty baseURL selects Open-Meteo.
func NewWeatherExecutor(baseURL string) *WeatherExecutor {
	if baseURL == "" {
		baseURL = DefaultWeatherURL
	}
	return &WeatherExecutor{
		baseURL: baseURL,
		client:  weatherHTTPClient,
		limiter: rate.NewLimiter(rate.Limit(DefaultWeatherRate), DefaultWeatherBurst),
	}
}

// WithHTTPClient sets the HTTP client.
func (w *WeatherExecutor) WithHTTPClient(c *http.Client) *WeatherExecutor {
	w.client = c
	return w
}

// WithRateLimit sets the outbound request rate (per second) and burst.
// A non-positive perSecond removes the limit.
func (w *WeatherExecutor) WithRateLimit(perSecond float64, burst int) *WeatherExecutor {
	if perSecond <= 0 {
		w.limiter = rate.NewLimiter(rate.Inf, 0)
		return w
	}
	if burst < 1 {
		burst = 1
	}
	w.limiter = rate.NewLimiter(rate.Limit(perSecond), burst)
	return w
}

// Execute fetches current temperature, hourly temperature and daily
// sunrise/sunset for params["latitude"], params["longitude"]. The upstream
// JSON is returned unchanged.
func (w *WeatherExecutor) Execute(ctx context.Context, params map[string]any) (Result, error) {
	lat, ok := params["latitude"].(float64)
	if !ok {
		return Result{}, &ValidationError{Param: "latitude", Message: "expected number type"}
	}
	lon, ok := params["longitude"].(float64)
	if !ok {
		return Result{}, &ValidationError{Param: "longitude", Message: "expected number type"}
	}

	u, err := url.Parse(w.baseURL)
	if err != nil {
		return Result{}, fmt.Errorf("invalid weather endpoint: %w", err)
	}
	q := u.Query()
	q.Set("latitude", strconv.FormatFloat(lat, 'f', -1, 64))
	q.Set("longitude", strconv.FormatFloat(lon, 'f', -1, 64))
	q.Set("current", "temperature_2m")
	q.Set("hourly", "temperature_2m")
	q.Set("daily", "sunrise,sunset")
	q.Set("timezone", "auto")
	u.RawQuery = q.Encode()

	// Waits for a token or fails once ctx cannot be met
	if err := w.limiter.Wait(ctx); err != nil {
		return Result{}, fmt.Errorf("weather rate limit: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return Result{}, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := w.client.Do(req)
	if err != nil {
		return Result{}, fmt.Errorf("weather request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxWeatherResponse+1))
	if err != nil {
		return Result{}, fmt.Errorf("failed to read weather response: %w", err)
	}
	if len(body) > maxWeatherResponse {
		return Result{}, fmt.Errorf("weather response exceeded %d bytes", maxWeatherResponse)
	}
	if resp.StatusCode != http.StatusOK {
		return Result{}, fmt.Errorf("weather service returned %d", resp.StatusCode)
	}
	if !json.Valid(body) {
		return Result{}, fmt.Errorf("weather service returned invalid JSON")
	}

	return Result{Success: true, Output: json.RawMessage(body)}, nil
}

// WeatherTool returns the getWeather tool definition bound to exec.
func WeatherTool(exec ToolExecutor) *Tool {
	return &Tool{
		Name:        WeatherToolName,
		Description: "Get the current weather at a location",
		Schema: Schema{
			Parameters: []Parameter{
				{
					Name:        "latitude",
					Type:        "number",
					Required:    true,
					Description: "Latitude of the location",
					Minimum:     Bound(-90),
					Maximum:     Bound(90),
				},
				{
					Name:        "longitude",
					Type:        "number",
					Required:    true,
					Description: "Longitude of the location",
					Minimum:     Bound(-180),
					Maximum:     Bound(180),
				},
			},
		},
		Executor: exec,
	}
}

// Builtins returns the registry of tools offered to the model.
func Builtins(weatherURL string) (*Registry, error) {
	return NewRegistry(WeatherTool(NewWeatherExecutor(weatherURL)))
}

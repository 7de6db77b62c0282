package irrigation_agent

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sony/gobreaker"
)

// WeatherClient reports the current external precipitation (mm) at a
// location. The rain-skip gate combines it with the local rain probe.
type WeatherClient interface {
	CurrentPrecipMM(ctx context.Context, lat, lon float64) (float64, error)
}

type weatherAPIResp struct {
	Current struct {
		PrecipMM float64 `json:"precip_mm"`
	} `json:"current"`
}

// WeatherAPIClient queries api.weatherapi.com behind a circuit breaker so a
// flapping upstream cannot stall the scheduling task on every cycle.
type WeatherAPIClient struct {
	apiKey  string
	baseURL string
	httpc   *http.Client
	breaker *gobreaker.CircuitBreaker
}

func NewWeatherAPIClient(apiKey string) *WeatherAPIClient {
	return &WeatherAPIClient{
		apiKey:  apiKey,
		baseURL: "https://api.weatherapi.com/v1",
		httpc:   &http.Client{Timeout: 8 * time.Second},
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:    "weatherapi",
			Timeout: 30 * time.Second,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= 3
			},
		}),
	}
}

func (c *WeatherAPIClient) CurrentPrecipMM(ctx context.Context, lat, lon float64) (float64, error) {
	if c.apiKey == "" {
		return 0, fmt.Errorf("missing api key")
	}
	out, err := c.breaker.Execute(func() (interface{}, error) {
		return c.fetch(ctx, lat, lon)
	})
	if err != nil {
		return 0, err
	}
	return out.(float64), nil
}

func (c *WeatherAPIClient) fetch(ctx context.Context, lat, lon float64) (float64, error) {
	url := fmt.Sprintf("%s/current.json?q=%f,%f&key=%s", c.baseURL, lat, lon, c.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, err
	}
	resp, err := c.httpc.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		return 0, fmt.Errorf("weatherapi status %d: %s", resp.StatusCode, string(b))
	}
	var out weatherAPIResp
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return 0, err
	}
	return out.Current.PrecipMM, nil
}

package macro

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/selivandex/etf-signals/internal/macroalign"
	"github.com/selivandex/etf-signals/pkg/models"
)

const fredAPIURL = "https://api.stlouisfed.org/fred"

// FredProvider implements SeriesProvider using the FRED observations API
type FredProvider struct {
	client  *http.Client
	baseURL string
	apiKey  string
}

// NewFredProvider creates new FRED series provider
func NewFredProvider(apiKey string) *FredProvider {
	return &FredProvider{
		client:  &http.Client{Timeout: 30 * time.Second},
		baseURL: fredAPIURL,
		apiKey:  apiKey,
	}
}

func (f *FredProvider) GetName() string {
	return "FRED"
}

type fredResponse struct {
	Observations []struct {
		Date  string `json:"date"`
		Value string `json:"value"`
	} `json:"observations"`
}

// GetObservations fetches the series for [from, to]. FRED reports missing
// prints as "." - those rows are dropped here so the aligner sees real gaps.
func (f *FredProvider) GetObservations(ctx context.Context, seriesKey string, from, to time.Time) ([]macroalign.Observation, error) {
	params := url.Values{}
	params.Set("series_id", seriesKey)
	params.Set("api_key", f.apiKey)
	params.Set("file_type", "json")
	params.Set("observation_start", from.Format("2006-01-02"))
	params.Set("observation_end", to.Format("2006-01-02"))
	params.Set("sort_order", "asc")

	reqURL := fmt.Sprintf("%s/series/observations?%s", f.baseURL, params.Encode())

	req, err := http.NewRequestWithContext(ctx, "GET", reqURL, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("API error %d for %s: %s", resp.StatusCode, seriesKey, string(body))
	}

	var result fredResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode response for %s: %w", seriesKey, err)
	}

	var obs []macroalign.Observation
	for _, o := range result.Observations {
		if o.Value == "." || o.Value == "" {
			continue
		}
		date, err := time.Parse("2006-01-02", o.Date)
		if err != nil {
			continue
		}
		value, err := strconv.ParseFloat(o.Value, 64)
		if err != nil {
			continue
		}
		obs = append(obs, macroalign.Observation{Date: models.DateOf(date), Value: value})
	}

	if len(obs) == 0 {
		return nil, fmt.Errorf("no observations returned for %s", seriesKey)
	}
	return obs, nil
}

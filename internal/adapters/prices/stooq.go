package prices

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/selivandex/etf-signals/pkg/models"
)

const stooqAPIURL = "https://stooq.com/q/d/l/"

// StooqProvider implements BarProvider using the Stooq daily CSV endpoint
// (free, no API key needed)
type StooqProvider struct {
	client  *http.Client
	baseURL string
}

// NewStooqProvider creates new Stooq bar provider
func NewStooqProvider() *StooqProvider {
	return &StooqProvider{
		client:  &http.Client{Timeout: 30 * time.Second},
		baseURL: stooqAPIURL,
	}
}

func (s *StooqProvider) GetName() string {
	return "Stooq"
}

// mapSymbolToStooq converts a universe symbol to Stooq's ticker form:
// US listings get a ".us" suffix, index symbols (^VIX) pass through lowered
func mapSymbolToStooq(symbol string) string {
	lower := strings.ToLower(symbol)
	if strings.HasPrefix(lower, "^") {
		return lower
	}
	return lower + ".us"
}

// GetDailyBars fetches daily OHLCV rows for [from, to] inclusive
func (s *StooqProvider) GetDailyBars(ctx context.Context, symbol string, from, to time.Time) ([]models.Bar, error) {
	url := fmt.Sprintf("%s?s=%s&d1=%s&d2=%s&i=d",
		s.baseURL, mapSymbolToStooq(symbol),
		from.Format("20060102"), to.Format("20060102"))

	req, err := http.NewRequestWithContext(ctx, "GET", url, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("API error %d: %s", resp.StatusCode, string(body))
	}

	bars, err := parseDailyCSV(resp.Body, symbol)
	if err != nil {
		return nil, fmt.Errorf("failed to parse bars for %s: %w", symbol, err)
	}
	if len(bars) == 0 {
		return nil, fmt.Errorf("no bars returned for %s", symbol)
	}
	return bars, nil
}

// parseDailyCSV reads the Date,Open,High,Low,Close,Volume layout. Rows with
// an unparsable price are skipped; index symbols legitimately lack volume.
func parseDailyCSV(r io.Reader, symbol string) ([]models.Bar, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}
	col := make(map[string]int, len(header))
	for i, name := range header {
		col[strings.ToLower(strings.TrimSpace(name))] = i
	}
	for _, required := range []string{"date", "open", "high", "low", "close"} {
		if _, ok := col[required]; !ok {
			return nil, fmt.Errorf("missing column %q", required)
		}
	}

	var bars []models.Bar
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read row: %w", err)
		}

		date, err := time.Parse("2006-01-02", record[col["date"]])
		if err != nil {
			continue
		}

		open, err1 := decimal.NewFromString(record[col["open"]])
		high, err2 := decimal.NewFromString(record[col["high"]])
		low, err3 := decimal.NewFromString(record[col["low"]])
		closePx, err4 := decimal.NewFromString(record[col["close"]])
		if err1 != nil || err2 != nil || err3 != nil || err4 != nil {
			continue
		}

		var volume int64
		if vi, ok := col["volume"]; ok && vi < len(record) {
			if v, err := strconv.ParseFloat(record[vi], 64); err == nil {
				volume = int64(v)
			}
		}

		bars = append(bars, models.Bar{
			Symbol:   symbol,
			Date:     models.DateOf(date),
			Open:     open,
			High:     high,
			Low:      low,
			Close:    closePx,
			AdjClose: closePx,
			Volume:   volume,
		})
	}

	sort.Slice(bars, func(i, j int) bool { return bars[i].Date.Before(bars[j].Date) })
	return bars, nil
}

package marketdata

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/yourusername/coinpilot/internal/models"
)

const defaultBaseURL = "https://api.binance.com"

// RESTSource fetches OHLCV data from a Binance-compatible REST API.
type RESTSource struct {
	baseURL string
	client  *RateLimitedHTTPClient
	logger  *logrus.Logger
}

// NewRESTSource creates a REST market data source. baseURL may be empty
// to use the public Binance endpoint.
func NewRESTSource(baseURL string, client *RateLimitedHTTPClient, logger *logrus.Logger) *RESTSource {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &RESTSource{
		baseURL: baseURL,
		client:  client,
		logger:  logger,
	}
}

// FetchOHLCV returns up to limit candles, oldest first.
// Binance returns: [ [open_time, open, high, low, close, volume, ...], ... ]
func (s *RESTSource) FetchOHLCV(ctx context.Context, symbol, timeframe string, limit int) ([]models.Candle, error) {
	if _, err := models.TimeframeDuration(timeframe); err != nil {
		return nil, err
	}

	endpoint := fmt.Sprintf("%s/api/v3/klines?symbol=%s&interval=%s&limit=%d",
		s.baseURL, url.QueryEscape(symbol), url.QueryEscape(timeframe), limit)

	resp, err := s.client.Get(ctx, endpoint)
	if err != nil {
		return nil, fmt.Errorf("fetch klines: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		return nil, fmt.Errorf("klines API error: status %d", resp.StatusCode)
	}

	var raw [][]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode klines: %w", err)
	}

	if len(raw) == 0 {
		return nil, fmt.Errorf("%w: no candles for %s %s", models.ErrDataUnavailable, symbol, timeframe)
	}

	candles := make([]models.Candle, 0, len(raw))
	for i, row := range raw {
		c, err := parseKline(symbol, timeframe, row)
		if err != nil {
			return nil, fmt.Errorf("parse kline %d: %w", i, err)
		}
		candles = append(candles, c)
	}

	s.logger.WithFields(logrus.Fields{
		"symbol":    symbol,
		"timeframe": timeframe,
		"count":     len(candles),
	}).Debug("Fetched OHLCV data")

	return candles, nil
}

// tickerResponse mirrors /api/v3/ticker/price.
type tickerResponse struct {
	Symbol string `json:"symbol"`
	Price  string `json:"price"`
}

// FetchTicker returns the last traded price for the symbol.
func (s *RESTSource) FetchTicker(ctx context.Context, symbol string) (float64, error) {
	endpoint := fmt.Sprintf("%s/api/v3/ticker/price?symbol=%s", s.baseURL, url.QueryEscape(symbol))

	resp, err := s.client.Get(ctx, endpoint)
	if err != nil {
		return 0, fmt.Errorf("fetch ticker: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		return 0, fmt.Errorf("ticker API error: status %d", resp.StatusCode)
	}

	var ticker tickerResponse
	if err := json.NewDecoder(resp.Body).Decode(&ticker); err != nil {
		return 0, fmt.Errorf("decode ticker: %w", err)
	}

	price, err := strconv.ParseFloat(ticker.Price, 64)
	if err != nil {
		return 0, fmt.Errorf("parse ticker price %q: %w", ticker.Price, err)
	}
	return price, nil
}

// parseKline converts one raw kline row into a Candle. Fields are numbers
// or strings representing numbers depending on position.
func parseKline(symbol, timeframe string, row []interface{}) (models.Candle, error) {
	if len(row) < 6 {
		return models.Candle{}, fmt.Errorf("kline row has %d fields, want at least 6", len(row))
	}

	openTimeMS, ok := row[0].(float64)
	if !ok {
		return models.Candle{}, fmt.Errorf("open time is %T, want number", row[0])
	}

	fields := make([]float64, 5)
	for i := 1; i <= 5; i++ {
		str, ok := row[i].(string)
		if !ok {
			return models.Candle{}, fmt.Errorf("field %d is %T, want string", i, row[i])
		}
		v, err := strconv.ParseFloat(str, 64)
		if err != nil {
			return models.Candle{}, fmt.Errorf("field %d: %w", i, err)
		}
		fields[i-1] = v
	}

	return models.Candle{
		Symbol:    symbol,
		Timeframe: timeframe,
		OpenTime:  time.UnixMilli(int64(openTimeMS)).UTC(),
		Open:      fields[0],
		High:      fields[1],
		Low:       fields[2],
		Close:     fields[3],
		Volume:    fields[4],
	}, nil
}

package marketdata

import (
	"context"

	"github.com/yourusername/coinpilot/internal/models"
)

// Source provides historical and current market data for a trading pair.
type Source interface {
	// FetchOHLCV returns up to limit candles for the symbol and timeframe,
	// ordered oldest first. An empty upstream payload is reported as
	// models.ErrDataUnavailable.
	FetchOHLCV(ctx context.Context, symbol, timeframe string, limit int) ([]models.Candle, error)

	// FetchTicker returns the last traded price for the symbol.
	FetchTicker(ctx context.Context, symbol string) (float64, error)
}

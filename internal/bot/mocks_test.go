package bot

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/yourusername/coinpilot/internal/models"
)

// MockTradeRepository is a mock implementation of TradeRepository
type MockTradeRepository struct {
	mock.Mock
}

func (m *MockTradeRepository) Save(ctx context.Context, trade *models.Trade) error {
	args := m.Called(ctx, trade)
	return args.Error(0)
}

func (m *MockTradeRepository) GetRecentClosed(ctx context.Context, tenantID uuid.UUID, limit int) ([]*models.Trade, error) {
	args := m.Called(ctx, tenantID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Trade), args.Error(1)
}

func (m *MockTradeRepository) GetByConfigID(ctx context.Context, configID uuid.UUID, limit int) ([]*models.Trade, error) {
	args := m.Called(ctx, configID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Trade), args.Error(1)
}

// MockBotConfigRepository is a mock implementation of BotConfigRepository
type MockBotConfigRepository struct {
	mock.Mock
}

func (m *MockBotConfigRepository) Create(ctx context.Context, cfg *models.BotConfig) error {
	args := m.Called(ctx, cfg)
	return args.Error(0)
}

func (m *MockBotConfigRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.BotConfig, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.BotConfig), args.Error(1)
}

func (m *MockBotConfigRepository) GetActive(ctx context.Context) ([]*models.BotConfig, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.BotConfig), args.Error(1)
}

func (m *MockBotConfigRepository) GetByTenant(ctx context.Context, tenantID uuid.UUID) ([]*models.BotConfig, error) {
	args := m.Called(ctx, tenantID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.BotConfig), args.Error(1)
}

func (m *MockBotConfigRepository) Update(ctx context.Context, cfg *models.BotConfig) error {
	args := m.Called(ctx, cfg)
	return args.Error(0)
}

func (m *MockBotConfigRepository) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// MockBotStateRepository is a mock implementation of BotStateRepository
type MockBotStateRepository struct {
	mock.Mock
}

func (m *MockBotStateRepository) Get(ctx context.Context, configID uuid.UUID) (*models.BotState, error) {
	args := m.Called(ctx, configID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.BotState), args.Error(1)
}

func (m *MockBotStateRepository) Init(ctx context.Context, tenantID, configID uuid.UUID) error {
	args := m.Called(ctx, tenantID, configID)
	return args.Error(0)
}

func (m *MockBotStateRepository) Update(ctx context.Context, tenantID, configID uuid.UUID, update *models.BotStateUpdate) error {
	args := m.Called(ctx, tenantID, configID, update)
	return args.Error(0)
}

// stubSource replays a fixed candle window on every fetch.
type stubSource struct {
	candles []models.Candle
	err     error
}

func (s *stubSource) FetchOHLCV(ctx context.Context, symbol, timeframe string, limit int) ([]models.Candle, error) {
	if s.err != nil {
		return nil, s.err
	}
	return models.CloneCandles(s.candles), nil
}

func (s *stubSource) FetchTicker(ctx context.Context, symbol string) (float64, error) {
	if s.err != nil {
		return 0, s.err
	}
	if len(s.candles) == 0 {
		return 0, models.ErrDataUnavailable
	}
	return s.candles[len(s.candles)-1].Close, nil
}

// testCandles builds an oldest-first window with a gentle uptrend.
func testCandles(n int) []models.Candle {
	candles := make([]models.Candle, n)
	start := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	for i := range candles {
		price := 100 + float64(i)*0.25
		candles[i] = models.Candle{
			Symbol:    "BTCUSDT",
			Timeframe: "1m",
			OpenTime:  start.Add(time.Duration(i) * time.Minute),
			Open:      price,
			High:      price + 0.5,
			Low:       price - 0.5,
			Close:     price + 0.1,
			Volume:    50,
		}
	}
	return candles
}

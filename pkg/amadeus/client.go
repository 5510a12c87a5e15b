package amadeus

import (
	"context"
	"fmt"
	"sync"

	"FareWatch/config"
	"FareWatch/internal/model"
	"FareWatch/pkg/logger"

	"go.uber.org/zap"
)

// SearchParams 航班搜索参数，日期格式为 YYYY-MM-DD
type SearchParams struct {
	Origin        string
	Destination   string
	DepartureDate string
	ReturnDate    string // 为空表示单程
}

// Client 航班供应商客户端接口
type Client interface {
	// SearchFlights 搜索报价并归一化，失败时返回 *APIError 或网络错误
	SearchFlights(ctx context.Context, params SearchParams) ([]model.FlightOffer, error)

	// SearchAirports 按关键字搜索机场和城市
	SearchAirports(ctx context.Context, keyword string) ([]model.Airport, error)
}

var (
	client     Client
	clientOnce sync.Once
	clientErr  error
)

// Init 初始化供应商客户端
func Init() error {
	clientOnce.Do(func() {
		cfg := config.Cfg

		if cfg.AmadeusAPIKey == "" || cfg.AmadeusAPISecret == "" {
			clientErr = fmt.Errorf("amadeus credentials are not configured")
			logger.Logger.Error("Failed to initialize Amadeus client", zap.Error(clientErr))
			return
		}

		client = NewHTTPClient(Options{
			BaseURL:    cfg.AmadeusBaseURL,
			APIKey:     cfg.AmadeusAPIKey,
			APISecret:  cfg.AmadeusAPISecret,
			Currency:   cfg.AmadeusCurrency,
			MaxResults: cfg.AmadeusMaxResults,
			Timeout:    cfg.AmadeusTimeout,
		})

		logger.Logger.Info("Amadeus client initialized successfully",
			zap.String("base_url", cfg.AmadeusBaseURL),
			zap.String("currency", cfg.AmadeusCurrency),
		)
	})

	return clientErr
}

func GetClient() Client {
	if client == nil {
		panic("Amadeus client not initialized, call amadeus.Init() first")
	}
	return client
}

// Ready 客户端是否已初始化
func Ready() bool {
	return client != nil
}

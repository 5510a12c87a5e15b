package amadeus

import (
	"context"
	"sync"

	"FareWatch/internal/model"
)

// MockClient 可配置的供应商 mock，实现 Client 接口
type MockClient struct {
	mu    sync.Mutex
	Calls []SearchParams

	Offers   []model.FlightOffer
	Airports []model.Airport

	// Err 非空时所有调用都返回该错误
	Err error
}

func NewMockClient() *MockClient {
	return &MockClient{
		Calls: make([]SearchParams, 0),
	}
}

func (m *MockClient) SearchFlights(ctx context.Context, params SearchParams) ([]model.FlightOffer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Calls = append(m.Calls, params)
	if m.Err != nil {
		return nil, m.Err
	}
	out := make([]model.FlightOffer, len(m.Offers))
	copy(out, m.Offers)
	return out, nil
}

func (m *MockClient) SearchAirports(ctx context.Context, keyword string) ([]model.Airport, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.Err != nil {
		return nil, m.Err
	}
	return m.Airports, nil
}

// CallCount 已发生的航班搜索次数
func (m *MockClient) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Calls)
}

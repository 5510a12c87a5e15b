package amadeus

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"FareWatch/internal/model"
	"FareWatch/pkg/logger"
	"FareWatch/pkg/metrics"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const (
	flightOffersPath = "/v2/shopping/flight-offers"
	locationsPath    = "/v1/reference-data/locations"

	// 错误响应体只保留前 4KB
	maxErrorBody = 4 << 10
)

// Options HTTP 客户端参数
type Options struct {
	BaseURL    string
	APIKey     string
	APISecret  string
	Currency   string
	MaxResults int
	Timeout    time.Duration
	HTTPClient *http.Client
}

type HTTPClient struct {
	baseURL    string
	currency   string
	maxResults int
	httpClient *http.Client
	tokens     *TokenCache
}

func NewHTTPClient(opts Options) *HTTPClient {
	hc := opts.HTTPClient
	if hc == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = 15 * time.Second
		}
		hc = &http.Client{Timeout: timeout}
	}
	if opts.Currency == "" {
		opts.Currency = "BRL"
	}
	if opts.MaxResults <= 0 {
		opts.MaxResults = 50
	}
	baseURL := strings.TrimRight(opts.BaseURL, "/")

	return &HTTPClient{
		baseURL:    baseURL,
		currency:   opts.Currency,
		maxResults: opts.MaxResults,
		httpClient: hc,
		tokens:     NewTokenCache(baseURL, opts.APIKey, opts.APISecret, hc),
	}
}

// SearchFlights 搜索航班报价，单个报价结构异常时丢弃该报价
func (c *HTTPClient) SearchFlights(ctx context.Context, params SearchParams) ([]model.FlightOffer, error) {
	query := url.Values{}
	setIfNotEmpty(query, "originLocationCode", params.Origin)
	setIfNotEmpty(query, "destinationLocationCode", params.Destination)
	setIfNotEmpty(query, "departureDate", params.DepartureDate)
	setIfNotEmpty(query, "returnDate", params.ReturnDate)
	query.Set("adults", "1")
	query.Set("max", strconv.Itoa(c.maxResults))
	query.Set("currencyCode", c.currency)

	var resp FlightOffersResponse
	if err := c.get(ctx, flightOffersPath, query, &resp); err != nil {
		return nil, err
	}

	var carriers map[string]string
	if resp.Dictionaries != nil {
		carriers = resp.Dictionaries.Carriers
	}

	offers := make([]model.FlightOffer, 0, len(resp.Data))
	for _, raw := range resp.Data {
		offer, err := normalizeOffer(raw, carriers)
		if err != nil {
			logger.Logger.Warn("Dropping malformed flight offer", zap.Error(err))
			continue
		}
		offers = append(offers, offer)
	}
	return offers, nil
}

// SearchAirports 按关键字搜索机场/城市，最多 10 条
func (c *HTTPClient) SearchAirports(ctx context.Context, keyword string) ([]model.Airport, error) {
	query := url.Values{}
	query.Set("subType", "AIRPORT,CITY")
	setIfNotEmpty(query, "keyword", keyword)
	query.Set("page[limit]", "10")
	query.Set("view", "FULL")

	var resp LocationsResponse
	if err := c.get(ctx, locationsPath, query, &resp); err != nil {
		return nil, err
	}

	airports := make([]model.Airport, 0, len(resp.Data))
	for _, loc := range resp.Data {
		airports = append(airports, normalizeLocation(loc))
	}
	return airports, nil
}

func (c *HTTPClient) get(ctx context.Context, path string, query url.Values, out interface{}) error {
	ctx, span := otel.Tracer("amadeus").Start(ctx, "amadeus GET "+path)
	defer span.End()

	err := c.do(ctx, path, query, out, true)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}

// do 发起请求，401 时丢弃 token 并重试一次
func (c *HTTPClient) do(ctx context.Context, path string, query url.Values, out interface{}, retryOnAuth bool) error {
	token, err := c.tokens.Token(ctx)
	if err != nil {
		return fmt.Errorf("amadeus auth: %w", err)
	}

	reqURL := c.baseURL + path
	if encoded := query.Encode(); encoded != "" {
		reqURL += "?" + encoded
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return fmt.Errorf("build amadeus request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		metrics.RecordProviderRequest(ctx, path, 0, time.Since(start).Seconds())
		return fmt.Errorf("amadeus request %s: %w", path, err)
	}
	defer resp.Body.Close()

	metrics.RecordProviderRequest(ctx, path, resp.StatusCode, time.Since(start).Seconds())
	trace.SpanFromContext(ctx).SetAttributes(attribute.Int("http.status_code", resp.StatusCode))

	if resp.StatusCode == http.StatusUnauthorized && retryOnAuth {
		_, _ = io.Copy(io.Discard, resp.Body)
		c.tokens.Invalidate(token)
		logger.Logger.Warn("Amadeus rejected access token, retrying once",
			zap.String("path", path),
		)
		return c.do(ctx, path, query, out, false)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &APIError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode amadeus response %s: %w", path, err)
	}
	return nil
}

func setIfNotEmpty(q url.Values, key, value string) {
	if value != "" {
		q.Set(key, value)
	}
}

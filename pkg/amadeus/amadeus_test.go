package amadeus

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

const offersFixture = `{
  "meta": {"count": 1},
  "data": [{
    "type": "flight-offer",
    "id": "1",
    "itineraries": [{
      "duration": "PT2H10M",
      "segments": [{
        "departure": {"iataCode": "GRU", "at": "2025-06-01T09:00:00"},
        "arrival": {"iataCode": "SSA", "at": "2025-06-01T11:10:00"},
        "carrierCode": "AD",
        "number": "4100"
      }]
    }],
    "price": {"currency": "BRL", "total": "530.00", "grandTotal": "530.00"}
  }],
  "dictionaries": {"carriers": {"AD": "AZUL"}}
}`

type fakeProvider struct {
	tokenCalls int32
	dataCalls  int32

	// dataStatus 返回每次数据请求的状态码，nil 时一律 200
	dataStatus func(call int32) int
	// tokenStatus 非 0 时 token 接口直接返回该状态码
	tokenStatus int

	mu        sync.Mutex
	lastQuery map[string]string
}

func (f *fakeProvider) handler(t *testing.T) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/security/oauth2/token", func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&f.tokenCalls, 1)
		if err := r.ParseForm(); err != nil {
			t.Errorf("parse token form: %v", err)
		}
		if r.PostForm.Get("grant_type") != "client_credentials" || r.PostForm.Get("client_id") != "key" {
			t.Errorf("unexpected token form: %v", r.PostForm)
		}
		if f.tokenStatus != 0 {
			w.WriteHeader(f.tokenStatus)
			fmt.Fprint(w, `{"error":"invalid_client"}`)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"access_token":"tok-%d","token_type":"Bearer","expires_in":1799}`, n)
	})
	mux.HandleFunc(flightOffersPath, func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&f.dataCalls, 1)
		if !strings.HasPrefix(r.Header.Get("Authorization"), "Bearer tok-") {
			t.Errorf("missing bearer token: %q", r.Header.Get("Authorization"))
		}

		f.mu.Lock()
		f.lastQuery = map[string]string{}
		for k := range r.URL.Query() {
			f.lastQuery[k] = r.URL.Query().Get(k)
		}
		f.mu.Unlock()

		status := http.StatusOK
		if f.dataStatus != nil {
			status = f.dataStatus(n)
		}
		if status != http.StatusOK {
			w.WriteHeader(status)
			fmt.Fprintf(w, `{"errors":[{"status":%d}]}`, status)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, offersFixture)
	})
	mux.HandleFunc(locationsPath, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"data":[{"subType":"AIRPORT","name":"GUARULHOS INTL","iataCode":"GRU","address":{"cityName":"SAO PAULO","countryCode":"BR"}}]}`)
	})
	return mux
}

func newTestClient(t *testing.T, f *fakeProvider) *HTTPClient {
	t.Helper()
	srv := httptest.NewServer(f.handler(t))
	t.Cleanup(srv.Close)
	return NewHTTPClient(Options{
		BaseURL:    srv.URL,
		APIKey:     "key",
		APISecret:  "secret",
		HTTPClient: srv.Client(),
	})
}

func TestSearchFlightsBuildsQueryAndCachesToken(t *testing.T) {
	t.Parallel()

	f := &fakeProvider{}
	c := newTestClient(t, f)
	params := SearchParams{Origin: "GRU", Destination: "SSA", DepartureDate: "2025-06-01"}

	for i := 0; i < 2; i++ {
		offers, err := c.SearchFlights(context.Background(), params)
		if err != nil {
			t.Fatalf("SearchFlights() error = %v", err)
		}
		if len(offers) != 1 || offers[0].AirlineName != "AZUL" || offers[0].Duration != 130 {
			t.Fatalf("unexpected offers: %+v", offers)
		}
	}

	if got := atomic.LoadInt32(&f.tokenCalls); got != 1 {
		t.Fatalf("token calls = %d, want 1", got)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	want := map[string]string{
		"originLocationCode":      "GRU",
		"destinationLocationCode": "SSA",
		"departureDate":           "2025-06-01",
		"adults":                  "1",
		"max":                     "50",
		"currencyCode":            "BRL",
	}
	for k, v := range want {
		if f.lastQuery[k] != v {
			t.Errorf("query %s = %q, want %q", k, f.lastQuery[k], v)
		}
	}
	if _, ok := f.lastQuery["returnDate"]; ok {
		t.Error("returnDate should be omitted for one-way searches")
	}
}

func TestSearchFlightsRetriesOnceOnUnauthorized(t *testing.T) {
	t.Parallel()

	f := &fakeProvider{dataStatus: func(call int32) int {
		if call == 1 {
			return http.StatusUnauthorized
		}
		return http.StatusOK
	}}
	c := newTestClient(t, f)

	offers, err := c.SearchFlights(context.Background(), SearchParams{Origin: "GRU", Destination: "SSA", DepartureDate: "2025-06-01"})
	if err != nil {
		t.Fatalf("SearchFlights() error = %v", err)
	}
	if len(offers) != 1 {
		t.Fatalf("offers = %d, want 1", len(offers))
	}
	if got := atomic.LoadInt32(&f.tokenCalls); got != 2 {
		t.Fatalf("token calls = %d, want 2", got)
	}
	if got := atomic.LoadInt32(&f.dataCalls); got != 2 {
		t.Fatalf("data calls = %d, want 2", got)
	}
}

func TestSearchFlightsGivesUpAfterSecondUnauthorized(t *testing.T) {
	t.Parallel()

	f := &fakeProvider{dataStatus: func(int32) int { return http.StatusUnauthorized }}
	c := newTestClient(t, f)

	_, err := c.SearchFlights(context.Background(), SearchParams{Origin: "GRU", Destination: "SSA", DepartureDate: "2025-06-01"})
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.StatusCode != http.StatusUnauthorized {
		t.Fatalf("error = %v, want APIError 401", err)
	}
	if got := atomic.LoadInt32(&f.dataCalls); got != 2 {
		t.Fatalf("data calls = %d, want 2", got)
	}
}

func TestSearchFlightsServerErrorIsRetryable(t *testing.T) {
	t.Parallel()

	f := &fakeProvider{dataStatus: func(int32) int { return http.StatusServiceUnavailable }}
	c := newTestClient(t, f)

	_, err := c.SearchFlights(context.Background(), SearchParams{Origin: "GRU", Destination: "SSA", DepartureDate: "2025-06-01"})
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "amadeus API error (503)") {
		t.Fatalf("error message = %q", err.Error())
	}
	if IsClientError(err) || !IsRetryable(err) {
		t.Fatalf("503 should be retryable, got client=%v", IsClientError(err))
	}
}

func TestTokenFailureSurfacesStatus(t *testing.T) {
	t.Parallel()

	f := &fakeProvider{tokenStatus: http.StatusUnauthorized}
	c := newTestClient(t, f)

	_, err := c.SearchAirports(context.Background(), "sao")
	if !IsClientError(err) {
		t.Fatalf("error = %v, want client error", err)
	}
}

func TestTokenRefreshedWithinLeewayOfExpiry(t *testing.T) {
	t.Parallel()

	f := &fakeProvider{}
	c := newTestClient(t, f)
	ctx := context.Background()

	if _, err := c.SearchAirports(ctx, "sao"); err != nil {
		t.Fatalf("SearchAirports() error = %v", err)
	}
	c.tokens.mu.RLock()
	expiry := c.tokens.token.Expiry
	c.tokens.mu.RUnlock()

	c.tokens.now = func() time.Time { return expiry.Add(-61 * time.Second) }
	if _, err := c.SearchAirports(ctx, "sao"); err != nil {
		t.Fatalf("SearchAirports() error = %v", err)
	}
	if got := atomic.LoadInt32(&f.tokenCalls); got != 1 {
		t.Fatalf("token calls 61s before expiry = %d, want 1", got)
	}

	c.tokens.now = func() time.Time { return expiry.Add(-59 * time.Second) }
	if _, err := c.SearchAirports(ctx, "sao"); err != nil {
		t.Fatalf("SearchAirports() error = %v", err)
	}
	if got := atomic.LoadInt32(&f.tokenCalls); got != 2 {
		t.Fatalf("token calls 59s before expiry = %d, want 2", got)
	}
}

func TestTokenFetchIgnoresCallerCancellation(t *testing.T) {
	t.Parallel()

	f := &fakeProvider{}
	c := newTestClient(t, f)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	tok, err := c.tokens.Token(ctx)
	if err != nil {
		t.Fatalf("Token() error = %v", err)
	}
	if tok != "tok-1" {
		t.Fatalf("Token() = %q, want tok-1", tok)
	}

	// 后续调用命中缓存
	if _, err := c.tokens.Token(context.Background()); err != nil {
		t.Fatalf("Token() error = %v", err)
	}
	if got := atomic.LoadInt32(&f.tokenCalls); got != 1 {
		t.Fatalf("token calls = %d, want 1", got)
	}
}

func TestConcurrentCallsShareOneToken(t *testing.T) {
	t.Parallel()

	f := &fakeProvider{}
	c := newTestClient(t, f)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := c.SearchAirports(context.Background(), "sao"); err != nil {
				t.Errorf("SearchAirports() error = %v", err)
			}
		}()
	}
	wg.Wait()

	if got := atomic.LoadInt32(&f.tokenCalls); got != 1 {
		t.Fatalf("token calls = %d, want 1", got)
	}
}

func TestSearchAirportsNormalizes(t *testing.T) {
	t.Parallel()

	c := newTestClient(t, &fakeProvider{})
	airports, err := c.SearchAirports(context.Background(), "guarulhos")
	if err != nil {
		t.Fatalf("SearchAirports() error = %v", err)
	}
	if len(airports) != 1 {
		t.Fatalf("airports = %d, want 1", len(airports))
	}
	got := airports[0]
	if got.IATACode != "GRU" || got.CityName != "SAO PAULO" || got.CountryCode != "BR" {
		t.Fatalf("unexpected airport: %+v", got)
	}
}

func TestIsClientError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"bad request", &APIError{StatusCode: 400}, true},
		{"not found", &APIError{StatusCode: 404}, true},
		{"server error", &APIError{StatusCode: 500}, false},
		{"wrapped", fmt.Errorf("search: %w", &APIError{StatusCode: 422}), true},
		{"text only", errors.New("Amadeus API error (429): too many"), true},
		{"network", errors.New("dial tcp: connection refused"), false},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := IsClientError(tt.err); got != tt.want {
				t.Fatalf("IsClientError(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

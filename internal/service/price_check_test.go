package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"FareWatch/internal/model"
	"FareWatch/pkg/amadeus"
)

type fakeAlertStore struct {
	mu      sync.Mutex
	alerts  map[string]*model.FlightAlert
	updates []model.ScheduleUpdate
}

func newFakeAlertStore(alerts ...*model.FlightAlert) *fakeAlertStore {
	s := &fakeAlertStore{alerts: map[string]*model.FlightAlert{}}
	for _, a := range alerts {
		s.alerts[a.ID] = a
	}
	return s
}

func (s *fakeAlertStore) FindAlertByID(_ context.Context, id string) (*model.FlightAlert, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.alerts[id]
	if !ok {
		return nil, nil
	}
	cp := *a
	return &cp, nil
}

func (s *fakeAlertStore) UpdateAlertSchedule(_ context.Context, id string, update model.ScheduleUpdate) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.updates = append(s.updates, update)
	a, ok := s.alerts[id]
	if !ok || a.Status != model.AlertStatusActive {
		return false, nil
	}
	if update.LastCheckedAt != nil {
		a.LastCheckedAt = update.LastCheckedAt
	}
	if update.NextCheckAt != nil {
		a.NextCheckAt = update.NextCheckAt
	}
	return true, nil
}

type fakeRecordStore struct {
	mu      sync.Mutex
	records []model.PriceRecord
}

func (s *fakeRecordStore) InsertPriceRecords(_ context.Context, alertID string, records []model.PriceRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range records {
		r.AlertID = alertID
		s.records = append(s.records, r)
	}
	return nil
}

type fakeQuota struct {
	decision QuotaDecision
	calls    int
}

func (q *fakeQuota) Admit(context.Context) (QuotaDecision, error) {
	q.calls++
	return q.decision, nil
}

var checkNow = time.Date(2025, 5, 20, 10, 0, 0, 0, time.UTC)

func strPtr(s string) *string { return &s }

func activeAlert(id string) *model.FlightAlert {
	past := checkNow.Add(-time.Minute)
	return &model.FlightAlert{
		ID:                     id,
		UserID:                 "user-1",
		DepartureCity:          "Sao Paulo",
		DepartureAirportCode:   strPtr("GRU"),
		DestinationCity:        "Lisbon",
		DestinationAirportCode: strPtr("LIS"),
		TripType:               model.TripTypeOneWay,
		DepartureDate:          time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC),
		PriceThreshold:         decimal.NewFromInt(3000),
		CheckFrequency:         model.FrequencyHours6,
		Status:                 model.AlertStatusActive,
		NextCheckAt:            &past,
	}
}

type checkFixture struct {
	alerts  *fakeAlertStore
	records *fakeRecordStore
	search  *amadeus.MockClient
	quota   *fakeQuota
	svc     *PriceCheckService
}

func newCheckFixture(alerts ...*model.FlightAlert) *checkFixture {
	f := &checkFixture{
		alerts:  newFakeAlertStore(alerts...),
		records: &fakeRecordStore{},
		search:  amadeus.NewMockClient(),
		quota:   &fakeQuota{decision: QuotaDecision{Allowed: true, Current: 1, Limit: 100}},
	}
	f.svc = NewPriceCheckService(f.alerts, f.records, f.search, f.quota)
	f.svc.now = func() time.Time { return checkNow }
	var seq int64
	f.svc.nextID = func() (int64, error) {
		seq++
		return seq, nil
	}
	return f
}

func TestCheckPriceStoresMatchingOffers(t *testing.T) {
	t.Parallel()

	alert := activeAlert("a1")
	alert.DepartureDayShift = []model.DayShift{model.DayShiftMorning}
	f := newCheckFixture(alert)
	f.search.Offers = []model.FlightOffer{
		offerAt(6, "LA", 600),
		offerAt(9, "G3", 640),
		offerAt(20, "LA", 600),
	}

	res, err := f.svc.CheckPrice(context.Background(), "a1")
	if err != nil {
		t.Fatalf("CheckPrice() error = %v", err)
	}
	if res.Skipped || res.OffersFound != 3 || res.OffersStored != 2 {
		t.Fatalf("result = %+v, want 3 found / 2 stored", res)
	}
	if len(f.records.records) != 2 {
		t.Fatalf("inserted %d records, want 2", len(f.records.records))
	}
	for _, r := range f.records.records {
		if r.AlertID != "a1" || !r.CheckedAt.Equal(checkNow) {
			t.Fatalf("record %+v has wrong alert or checkedAt", r)
		}
	}

	stored := f.alerts.alerts["a1"]
	if want := checkNow.Add(6 * time.Hour); stored.NextCheckAt == nil || !stored.NextCheckAt.Equal(want) {
		t.Fatalf("nextCheckAt = %v, want %v", stored.NextCheckAt, want)
	}
	if stored.LastCheckedAt == nil || !stored.LastCheckedAt.Equal(checkNow) {
		t.Fatalf("lastCheckedAt = %v, want %v", stored.LastCheckedAt, checkNow)
	}

	params := f.search.Calls[0]
	if params.Origin != "GRU" || params.Destination != "LIS" || params.DepartureDate != "2025-07-01" || params.ReturnDate != "" {
		t.Fatalf("search params = %+v", params)
	}
}

func TestCheckPriceSkipsInactiveAlerts(t *testing.T) {
	t.Parallel()

	paused := activeAlert("paused")
	paused.Status = model.AlertStatusPaused
	paused.NextCheckAt = nil
	f := newCheckFixture(paused)

	for _, id := range []string{"paused", "missing"} {
		res, err := f.svc.CheckPrice(context.Background(), id)
		if err != nil {
			t.Fatalf("CheckPrice(%s) error = %v", id, err)
		}
		if !res.Skipped || res.Reason != reasonNotActive {
			t.Fatalf("CheckPrice(%s) = %+v, want skipped not active", id, res)
		}
	}

	if f.quota.calls != 0 {
		t.Fatalf("quota called %d times, want 0", f.quota.calls)
	}
	if f.search.CallCount() != 0 || len(f.alerts.updates) != 0 || len(f.records.records) != 0 {
		t.Fatal("inactive alert produced side effects")
	}
}

func TestCheckPriceQuotaDenied(t *testing.T) {
	t.Parallel()

	f := newCheckFixture(activeAlert("a1"))
	f.quota.decision = QuotaDecision{Allowed: false, Current: 101, Limit: 100}

	res, err := f.svc.CheckPrice(context.Background(), "a1")
	if err != nil {
		t.Fatalf("CheckPrice() error = %v", err)
	}
	if !res.Skipped || !strings.Contains(res.Reason, "101/100") {
		t.Fatalf("result = %+v, want quota skip with usage", res)
	}
	if f.search.CallCount() != 0 {
		t.Fatal("search called after quota denial")
	}

	if len(f.alerts.updates) != 1 {
		t.Fatalf("updates = %d, want 1", len(f.alerts.updates))
	}
	update := f.alerts.updates[0]
	if update.LastCheckedAt != nil {
		t.Fatal("quota denial must not touch lastCheckedAt")
	}
	if want := checkNow.Add(6 * time.Hour); update.NextCheckAt == nil || !update.NextCheckAt.Equal(want) {
		t.Fatalf("nextCheckAt = %v, want %v", update.NextCheckAt, want)
	}
}

func TestCheckPriceClientErrorIsSkipped(t *testing.T) {
	t.Parallel()

	f := newCheckFixture(activeAlert("a1"))
	f.search.Err = &amadeus.APIError{StatusCode: 400, Body: `{"errors":[{"detail":"date in the past"}]}`}

	res, err := f.svc.CheckPrice(context.Background(), "a1")
	if err != nil {
		t.Fatalf("CheckPrice() error = %v, want nil for 4xx", err)
	}
	if !res.Skipped || res.Reason != reasonProviderError || !strings.Contains(res.Error, "(400)") {
		t.Fatalf("result = %+v", res)
	}
	if len(f.records.records) != 0 {
		t.Fatal("records inserted on client error")
	}
	if want := checkNow.Add(6 * time.Hour); !f.alerts.alerts["a1"].NextCheckAt.Equal(want) {
		t.Fatalf("nextCheckAt = %v, want %v", f.alerts.alerts["a1"].NextCheckAt, want)
	}
}

func TestCheckPriceServerErrorPropagates(t *testing.T) {
	t.Parallel()

	f := newCheckFixture(activeAlert("a1"))
	f.search.Err = &amadeus.APIError{StatusCode: 503, Body: "unavailable"}

	_, err := f.svc.CheckPrice(context.Background(), "a1")
	if err == nil {
		t.Fatal("CheckPrice() error = nil, want 5xx to propagate")
	}
	var apiErr *amadeus.APIError
	if !errors.As(err, &apiErr) || apiErr.StatusCode != 503 {
		t.Fatalf("error = %v, want wrapped APIError 503", err)
	}
	if want := checkNow.Add(6 * time.Hour); !f.alerts.alerts["a1"].NextCheckAt.Equal(want) {
		t.Fatalf("nextCheckAt = %v, want eager reschedule to %v", f.alerts.alerts["a1"].NextCheckAt, want)
	}
}

func TestCheckPriceUnknownFrequencyFallsBack(t *testing.T) {
	t.Parallel()

	alert := activeAlert("a1")
	alert.CheckFrequency = "EVERY_FORTNIGHT"
	f := newCheckFixture(alert)

	if _, err := f.svc.CheckPrice(context.Background(), "a1"); err != nil {
		t.Fatalf("CheckPrice() error = %v", err)
	}
	if want := checkNow.Add(model.DefaultCheckInterval); !f.alerts.alerts["a1"].NextCheckAt.Equal(want) {
		t.Fatalf("nextCheckAt = %v, want %v", f.alerts.alerts["a1"].NextCheckAt, want)
	}
}

func TestCheckPriceMissingRoute(t *testing.T) {
	t.Parallel()

	alert := activeAlert("a1")
	alert.DestinationAirportCode = nil
	f := newCheckFixture(alert)

	res, err := f.svc.CheckPrice(context.Background(), "a1")
	if err != nil {
		t.Fatalf("CheckPrice() error = %v", err)
	}
	if !res.Skipped || res.Reason != reasonRouteMissing {
		t.Fatalf("result = %+v, want route skip", res)
	}
	if f.quota.calls != 0 || f.search.CallCount() != 0 {
		t.Fatal("missing route must not consume quota or search")
	}
	if len(f.alerts.updates) != 1 {
		t.Fatalf("updates = %d, want 1", len(f.alerts.updates))
	}
}

func TestCheckPriceRoundTripPassesReturnDate(t *testing.T) {
	t.Parallel()

	alert := activeAlert("a1")
	ret := time.Date(2025, 7, 15, 0, 0, 0, 0, time.UTC)
	alert.TripType = model.TripTypeRoundTrip
	alert.ReturnDate = &ret
	f := newCheckFixture(alert)

	if _, err := f.svc.CheckPrice(context.Background(), "a1"); err != nil {
		t.Fatalf("CheckPrice() error = %v", err)
	}
	if got := f.search.Calls[0].ReturnDate; got != "2025-07-15" {
		t.Fatalf("ReturnDate = %q, want 2025-07-15", got)
	}
}

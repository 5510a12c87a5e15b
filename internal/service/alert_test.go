package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"FareWatch/internal/model"
	"FareWatch/internal/model/dto"
	pkgerrors "FareWatch/pkg/errors"
)

type memoryAlertRepo struct {
	mu     sync.Mutex
	alerts map[string]*model.FlightAlert
}

func newMemoryAlertRepo() *memoryAlertRepo {
	return &memoryAlertRepo{alerts: map[string]*model.FlightAlert{}}
}

func (r *memoryAlertRepo) Create(_ context.Context, alert *model.FlightAlert) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *alert
	r.alerts[alert.ID] = &cp
	return nil
}

func (r *memoryAlertRepo) FindUserAlert(_ context.Context, userID, id string) (*model.FlightAlert, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.alerts[id]
	if !ok || a.UserID != userID || a.Status == model.AlertStatusDeleted {
		return nil, nil
	}
	cp := *a
	return &cp, nil
}

func (r *memoryAlertRepo) ListByUser(_ context.Context, userID string, status model.AlertStatus) ([]model.FlightAlert, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.FlightAlert
	for _, a := range r.alerts {
		if a.UserID != userID || a.Status == model.AlertStatusDeleted {
			continue
		}
		if status != "" && a.Status != status {
			continue
		}
		out = append(out, *a)
	}
	return out, nil
}

func (r *memoryAlertRepo) Update(_ context.Context, id string, updates map[string]interface{}) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.alerts[id]
	if !ok || a.Status == model.AlertStatusDeleted {
		return false, nil
	}
	if v, ok := updates["check_frequency"]; ok {
		a.CheckFrequency = v.(model.CheckFrequency)
	}
	if v, ok := updates["next_check_at"]; ok {
		next := v.(time.Time)
		a.NextCheckAt = &next
	}
	if v, ok := updates["price_threshold"]; ok {
		a.PriceThreshold = v.(decimal.Decimal)
	}
	return true, nil
}

func (r *memoryAlertRepo) UpdateAlertSchedule(_ context.Context, id string, update model.ScheduleUpdate) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.alerts[id]
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

func (r *memoryAlertRepo) Transition(_ context.Context, id string, from, to model.AlertStatus, next *time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.alerts[id]
	if !ok || a.Status != from {
		return false, nil
	}
	a.Status = to
	a.NextCheckAt = next
	return true, nil
}

type fakeSummaries struct{}

func (fakeSummaries) Summary(context.Context, string) (model.PriceSummary, error) {
	lowest := decimal.RequireFromString("1234.56")
	return model.PriceSummary{LowestPrice: &lowest, RecordCount: 4}, nil
}

var lifecycleNow = time.Date(2025, 5, 20, 12, 0, 0, 0, time.UTC)

func newTestAlertService() (*AlertService, *memoryAlertRepo) {
	repo := newMemoryAlertRepo()
	svc := NewAlertService(repo, fakeSummaries{})
	svc.now = func() time.Time { return lifecycleNow }
	return svc, repo
}

func oneWayRequest() dto.CreateAlertRequest {
	return dto.CreateAlertRequest{
		DepartureCity:          "Sao Paulo",
		DepartureAirportCode:   strPtr("gru"),
		DestinationCity:        "Lisbon",
		DestinationAirportCode: strPtr("LIS"),
		TripType:               model.TripTypeOneWay,
		DepartureDate:          "2025-07-01",
		DepartureDayShift:      []model.DayShift{model.DayShiftMorning},
		PriceThreshold:         decimal.NewFromInt(3000),
		Airlines:               []string{" la "},
	}
}

func TestCreateAlertSchedulesImmediately(t *testing.T) {
	t.Parallel()

	svc, repo := newTestAlertService()
	alert, err := svc.CreateAlert(context.Background(), "user-1", oneWayRequest())
	if err != nil {
		t.Fatalf("CreateAlert() error = %v", err)
	}

	if alert.ID == "" || alert.Status != model.AlertStatusActive {
		t.Fatalf("alert = %+v, want ACTIVE with id", alert)
	}
	if alert.NextCheckAt == nil || !alert.NextCheckAt.Equal(lifecycleNow) {
		t.Fatalf("nextCheckAt = %v, want %v", alert.NextCheckAt, lifecycleNow)
	}
	if alert.CheckFrequency != model.FrequencyHours6 {
		t.Fatalf("frequency = %s, want default HOURS_6", alert.CheckFrequency)
	}
	if *alert.DepartureAirportCode != "GRU" || alert.Airlines[0] != "LA" {
		t.Fatalf("codes not normalized: %v %v", *alert.DepartureAirportCode, alert.Airlines)
	}
	if _, ok := repo.alerts[alert.ID]; !ok {
		t.Fatal("alert not persisted")
	}
}

func TestCreateAlertValidation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		mutate func(*dto.CreateAlertRequest)
		want   error
	}{
		{"round trip without return", func(r *dto.CreateAlertRequest) { r.TripType = model.TripTypeRoundTrip }, pkgerrors.AlertReturnRequired},
		{"one way with return", func(r *dto.CreateAlertRequest) { r.ReturnDate = strPtr("2025-07-10") }, pkgerrors.InvalidRequest},
		{"bad airport code", func(r *dto.CreateAlertRequest) { r.DepartureAirportCode = strPtr("GR") }, pkgerrors.InvalidRequest},
		{"bad date", func(r *dto.CreateAlertRequest) { r.DepartureDate = "01/07/2025" }, pkgerrors.InvalidRequest},
		{"zero threshold", func(r *dto.CreateAlertRequest) { r.PriceThreshold = decimal.Zero }, pkgerrors.InvalidRequest},
		{"unknown frequency", func(r *dto.CreateAlertRequest) { r.CheckFrequency = "MINUTES_5" }, pkgerrors.InvalidRequest},
		{"unknown shift", func(r *dto.CreateAlertRequest) { r.DepartureDayShift = []model.DayShift{"DAWN"} }, pkgerrors.InvalidRequest},
		{"missing trip type", func(r *dto.CreateAlertRequest) { r.TripType = "" }, pkgerrors.InvalidRequest},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			svc, _ := newTestAlertService()
			req := oneWayRequest()
			tt.mutate(&req)

			_, err := svc.CreateAlert(context.Background(), "user-1", req)
			if !errors.Is(err, tt.want) {
				t.Fatalf("CreateAlert() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestCreateRoundTripAlert(t *testing.T) {
	t.Parallel()

	svc, _ := newTestAlertService()
	req := oneWayRequest()
	req.TripType = model.TripTypeRoundTrip
	req.ReturnDate = strPtr("2025-07-15")
	req.ReturnDayShift = []model.DayShift{model.DayShiftNight}

	alert, err := svc.CreateAlert(context.Background(), "user-1", req)
	if err != nil {
		t.Fatalf("CreateAlert() error = %v", err)
	}
	if _, ret := alert.SearchDates(); ret != "2025-07-15" {
		t.Fatalf("return date = %q", ret)
	}
}

func TestAlertPauseResumeDelete(t *testing.T) {
	t.Parallel()

	svc, repo := newTestAlertService()
	ctx := context.Background()
	alert, err := svc.CreateAlert(ctx, "user-1", oneWayRequest())
	if err != nil {
		t.Fatalf("CreateAlert() error = %v", err)
	}

	paused, err := svc.PauseAlert(ctx, "user-1", alert.ID)
	if err != nil {
		t.Fatalf("PauseAlert() error = %v", err)
	}
	if paused.Status != model.AlertStatusPaused || paused.NextCheckAt != nil {
		t.Fatalf("paused = %+v, want PAUSED with nil nextCheckAt", paused)
	}

	if _, err := svc.PauseAlert(ctx, "user-1", alert.ID); !errors.Is(err, pkgerrors.AlertStatusInvalid) {
		t.Fatalf("second PauseAlert() error = %v, want status invalid", err)
	}

	resumed, err := svc.ResumeAlert(ctx, "user-1", alert.ID)
	if err != nil {
		t.Fatalf("ResumeAlert() error = %v", err)
	}
	if resumed.NextCheckAt == nil || !resumed.NextCheckAt.Equal(lifecycleNow) {
		t.Fatalf("resumed nextCheckAt = %v, want now", resumed.NextCheckAt)
	}

	if err := svc.DeleteAlert(ctx, "user-1", alert.ID); err != nil {
		t.Fatalf("DeleteAlert() error = %v", err)
	}
	stored := repo.alerts[alert.ID]
	if stored.Status != model.AlertStatusDeleted || stored.NextCheckAt != nil {
		t.Fatalf("stored = %+v, want DELETED with nil nextCheckAt", stored)
	}

	if _, err := svc.ResumeAlert(ctx, "user-1", alert.ID); !errors.Is(err, pkgerrors.AlertNotFound) {
		t.Fatalf("ResumeAlert() on deleted error = %v, want not found", err)
	}
}

func TestAlertOwnership(t *testing.T) {
	t.Parallel()

	svc, _ := newTestAlertService()
	ctx := context.Background()
	alert, err := svc.CreateAlert(ctx, "user-1", oneWayRequest())
	if err != nil {
		t.Fatalf("CreateAlert() error = %v", err)
	}

	if _, err := svc.GetAlert(ctx, "user-2", alert.ID); !errors.Is(err, pkgerrors.AlertNotFound) {
		t.Fatalf("GetAlert() by other user error = %v, want not found", err)
	}
	if err := svc.DeleteAlert(ctx, "user-2", alert.ID); !errors.Is(err, pkgerrors.AlertNotFound) {
		t.Fatalf("DeleteAlert() by other user error = %v, want not found", err)
	}

	detail, err := svc.GetAlert(ctx, "user-1", alert.ID)
	if err != nil {
		t.Fatalf("GetAlert() error = %v", err)
	}
	if detail.RecordCount != 4 || detail.LowestPrice.String() != "1234.56" {
		t.Fatalf("summary = %+v", detail.PriceSummary)
	}
}

func TestUpdateAlertFrequencyReschedules(t *testing.T) {
	t.Parallel()

	svc, repo := newTestAlertService()
	ctx := context.Background()
	alert, err := svc.CreateAlert(ctx, "user-1", oneWayRequest())
	if err != nil {
		t.Fatalf("CreateAlert() error = %v", err)
	}

	freq := model.FrequencyHours12
	updated, err := svc.UpdateAlert(ctx, "user-1", alert.ID, dto.UpdateAlertRequest{CheckFrequency: &freq})
	if err != nil {
		t.Fatalf("UpdateAlert() error = %v", err)
	}

	want := lifecycleNow.Add(12 * time.Hour)
	if !updated.NextCheckAt.Equal(want) || !repo.alerts[alert.ID].NextCheckAt.Equal(want) {
		t.Fatalf("nextCheckAt = %v, want %v", updated.NextCheckAt, want)
	}

	bad := model.CheckFrequency("HOURS_2")
	if _, err := svc.UpdateAlert(ctx, "user-1", alert.ID, dto.UpdateAlertRequest{CheckFrequency: &bad}); !errors.Is(err, pkgerrors.InvalidRequest) {
		t.Fatalf("UpdateAlert() error = %v, want invalid request", err)
	}
}

// pausingAlertRepo 模拟读取之后、写入之前的并发暂停
type pausingAlertRepo struct {
	*memoryAlertRepo
	once sync.Once
}

func (r *pausingAlertRepo) FindUserAlert(ctx context.Context, userID, id string) (*model.FlightAlert, error) {
	alert, err := r.memoryAlertRepo.FindUserAlert(ctx, userID, id)
	r.once.Do(func() {
		_, _ = r.memoryAlertRepo.Transition(ctx, id, model.AlertStatusActive, model.AlertStatusPaused, nil)
	})
	return alert, err
}

func TestUpdateAlertFrequencyDoesNotScheduleConcurrentlyPausedAlert(t *testing.T) {
	t.Parallel()

	base := newMemoryAlertRepo()
	seed := NewAlertService(base, fakeSummaries{})
	seed.now = func() time.Time { return lifecycleNow }
	ctx := context.Background()
	alert, err := seed.CreateAlert(ctx, "user-1", oneWayRequest())
	if err != nil {
		t.Fatalf("CreateAlert() error = %v", err)
	}

	svc := NewAlertService(&pausingAlertRepo{memoryAlertRepo: base}, fakeSummaries{})
	svc.now = func() time.Time { return lifecycleNow }

	freq := model.FrequencyHours12
	updated, err := svc.UpdateAlert(ctx, "user-1", alert.ID, dto.UpdateAlertRequest{CheckFrequency: &freq})
	if err != nil {
		t.Fatalf("UpdateAlert() error = %v", err)
	}

	stored := base.alerts[alert.ID]
	if stored.Status != model.AlertStatusPaused {
		t.Fatalf("status = %s, want PAUSED", stored.Status)
	}
	if stored.NextCheckAt != nil {
		t.Fatalf("paused alert has nextCheckAt = %v", stored.NextCheckAt)
	}
	if stored.CheckFrequency != model.FrequencyHours12 {
		t.Fatalf("checkFrequency = %s, want HOURS_12", stored.CheckFrequency)
	}
	if updated.Status != model.AlertStatusPaused || updated.NextCheckAt != nil {
		t.Fatalf("returned alert = %s/%v, want PAUSED/nil", updated.Status, updated.NextCheckAt)
	}
}

func TestListAlertsRejectsDeletedFilter(t *testing.T) {
	t.Parallel()

	svc, _ := newTestAlertService()
	if _, err := svc.ListAlerts(context.Background(), "user-1", "deleted"); !errors.Is(err, pkgerrors.InvalidRequest) {
		t.Fatalf("ListAlerts() error = %v, want invalid request", err)
	}
}

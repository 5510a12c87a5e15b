package service

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/datatypes"

	"FareWatch/internal/model"
	"FareWatch/internal/model/dto"
	"FareWatch/internal/repository"
	pkgerrors "FareWatch/pkg/errors"
	"FareWatch/pkg/logger"
)

// AlertRepo 提醒生命周期需要的持久化操作
type AlertRepo interface {
	Create(ctx context.Context, alert *model.FlightAlert) error
	FindUserAlert(ctx context.Context, userID, id string) (*model.FlightAlert, error)
	ListByUser(ctx context.Context, userID string, status model.AlertStatus) ([]model.FlightAlert, error)
	Update(ctx context.Context, id string, updates map[string]interface{}) (bool, error)
	UpdateAlertSchedule(ctx context.Context, id string, update model.ScheduleUpdate) (bool, error)
	Transition(ctx context.Context, id string, from, to model.AlertStatus, nextCheckAt *time.Time) (bool, error)
}

// PriceSummaryReader 提醒详情里的价格摘要
type PriceSummaryReader interface {
	Summary(ctx context.Context, alertID string) (model.PriceSummary, error)
}

// AlertService 提醒的创建、修改、暂停、恢复、删除
type AlertService struct {
	alerts    AlertRepo
	summaries PriceSummaryReader
	now       func() time.Time
}

var (
	alertService *AlertService
	alertOnce    sync.Once
)

func Alert() *AlertService {
	alertOnce.Do(func() {
		alertService = NewAlertService(repository.Alert(), repository.PriceRecord())
	})
	return alertService
}

func NewAlertService(alerts AlertRepo, summaries PriceSummaryReader) *AlertService {
	return &AlertService{
		alerts:    alerts,
		summaries: summaries,
		now:       time.Now,
	}
}

var iataPattern = regexp.MustCompile(`^[A-Z]{3}$`)

func invalid(format string, args ...interface{}) error {
	return pkgerrors.Definition{
		Code:    pkgerrors.InvalidRequest.Code,
		Message: fmt.Sprintf(format, args...),
	}
}

func parseDate(field, value string) (time.Time, error) {
	t, err := time.Parse(model.DateLayout, value)
	if err != nil {
		return time.Time{}, invalid("%s must be a date in YYYY-MM-DD format", field)
	}
	return t, nil
}

func parseOptionalDate(field string, value *string) (*time.Time, error) {
	if value == nil || *value == "" {
		return nil, nil
	}
	t, err := parseDate(field, *value)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func normalizeAirport(field string, code *string) (*string, error) {
	if code == nil || *code == "" {
		return nil, nil
	}
	upper := strings.ToUpper(strings.TrimSpace(*code))
	if !iataPattern.MatchString(upper) {
		return nil, invalid("%s must be a 3-letter IATA code", field)
	}
	return &upper, nil
}

func validateShifts(field string, shifts []model.DayShift) error {
	for _, s := range shifts {
		switch s {
		case model.DayShiftMorning, model.DayShiftAfternoon, model.DayShiftNight:
		default:
			return invalid("%s contains unknown value %q", field, s)
		}
	}
	return nil
}

func normalizeAirlines(airlines []string) []string {
	out := make([]string, 0, len(airlines))
	for _, a := range airlines {
		a = strings.ToUpper(strings.TrimSpace(a))
		if a != "" {
			out = append(out, a)
		}
	}
	return out
}

// buildAlert 校验请求并组装新提醒，状态 ACTIVE 且 nextCheckAt 为当前时间
func (s *AlertService) buildAlert(userID string, req dto.CreateAlertRequest) (*model.FlightAlert, error) {
	if strings.TrimSpace(req.DepartureCity) == "" || strings.TrimSpace(req.DestinationCity) == "" {
		return nil, invalid("departure_city and destination_city are required")
	}
	if req.TripType != model.TripTypeOneWay && req.TripType != model.TripTypeRoundTrip {
		return nil, invalid("trip_type must be ONE_WAY or ROUND_TRIP")
	}

	depCode, err := normalizeAirport("departure_airport_code", req.DepartureAirportCode)
	if err != nil {
		return nil, err
	}
	dstCode, err := normalizeAirport("destination_airport_code", req.DestinationAirportCode)
	if err != nil {
		return nil, err
	}

	depDate, err := parseDate("departure_date", req.DepartureDate)
	if err != nil {
		return nil, err
	}
	depEnd, err := parseOptionalDate("departure_date_end", req.DepartureDateEnd)
	if err != nil {
		return nil, err
	}
	if depEnd != nil && depEnd.Before(depDate) {
		return nil, invalid("departure_date_end must not be before departure_date")
	}

	retDate, err := parseOptionalDate("return_date", req.ReturnDate)
	if err != nil {
		return nil, err
	}
	retEnd, err := parseOptionalDate("return_date_end", req.ReturnDateEnd)
	if err != nil {
		return nil, err
	}

	switch req.TripType {
	case model.TripTypeRoundTrip:
		if retDate == nil {
			return nil, pkgerrors.AlertReturnRequired
		}
		if retDate.Before(depDate) {
			return nil, invalid("return_date must not be before departure_date")
		}
		if retEnd != nil && retEnd.Before(*retDate) {
			return nil, invalid("return_date_end must not be before return_date")
		}
	case model.TripTypeOneWay:
		if retDate != nil || retEnd != nil || len(req.ReturnDayShift) > 0 {
			return nil, invalid("return fields are only allowed for ROUND_TRIP")
		}
	}

	if err := validateShifts("departure_day_shift", req.DepartureDayShift); err != nil {
		return nil, err
	}
	if err := validateShifts("return_day_shift", req.ReturnDayShift); err != nil {
		return nil, err
	}

	if !req.PriceThreshold.IsPositive() {
		return nil, invalid("price_threshold must be greater than zero")
	}
	if req.MaxFlightDuration != nil && *req.MaxFlightDuration <= 0 {
		return nil, invalid("max_flight_duration must be a positive number of minutes")
	}

	frequency := req.CheckFrequency
	if frequency == "" {
		frequency = model.FrequencyHours6
	}
	if !frequency.Valid() {
		return nil, invalid("check_frequency %q is not supported", frequency)
	}

	now := s.now().UTC()
	return &model.FlightAlert{
		ID:                     uuid.NewString(),
		UserID:                 userID,
		DepartureCity:          strings.TrimSpace(req.DepartureCity),
		DepartureAirportCode:   depCode,
		DestinationCity:        strings.TrimSpace(req.DestinationCity),
		DestinationAirportCode: dstCode,
		TripType:               req.TripType,
		DepartureDate:          depDate,
		DepartureDateEnd:       depEnd,
		DepartureDayShift:      datatypes.NewJSONSlice(shiftsOrEmpty(req.DepartureDayShift)),
		ReturnDate:             retDate,
		ReturnDateEnd:          retEnd,
		ReturnDayShift:         datatypes.NewJSONSlice(shiftsOrEmpty(req.ReturnDayShift)),
		PriceThreshold:         req.PriceThreshold,
		Airlines:               datatypes.NewJSONSlice(normalizeAirlines(req.Airlines)),
		MaxFlightDuration:      req.MaxFlightDuration,
		CheckFrequency:         frequency,
		Status:                 model.AlertStatusActive,
		NextCheckAt:            &now,
	}, nil
}

func shiftsOrEmpty(shifts []model.DayShift) []model.DayShift {
	if shifts == nil {
		return []model.DayShift{}
	}
	return shifts
}

// CreateAlert 新提醒立即进入下一轮扫描
func (s *AlertService) CreateAlert(ctx context.Context, userID string, req dto.CreateAlertRequest) (*model.FlightAlert, error) {
	alert, err := s.buildAlert(userID, req)
	if err != nil {
		return nil, err
	}

	if err := s.alerts.Create(ctx, alert); err != nil {
		logger.Logger.Error("Failed to create alert",
			zap.String("user_id", userID),
			zap.Error(err),
		)
		return nil, err
	}

	logger.Logger.Info("Alert created",
		zap.String("alert_id", alert.ID),
		zap.String("user_id", userID),
		zap.String("frequency", string(alert.CheckFrequency)),
	)
	return alert, nil
}

func (s *AlertService) findOwned(ctx context.Context, userID, alertID string) (*model.FlightAlert, error) {
	alert, err := s.alerts.FindUserAlert(ctx, userID, alertID)
	if err != nil {
		return nil, err
	}
	if alert == nil {
		return nil, pkgerrors.AlertNotFound
	}
	return alert, nil
}

// GetAlert 提醒详情和价格摘要
func (s *AlertService) GetAlert(ctx context.Context, userID, alertID string) (*dto.AlertDetail, error) {
	alert, err := s.findOwned(ctx, userID, alertID)
	if err != nil {
		return nil, err
	}

	summary, err := s.summaries.Summary(ctx, alert.ID)
	if err != nil {
		return nil, err
	}
	return &dto.AlertDetail{FlightAlert: alert, PriceSummary: summary}, nil
}

// ListAlerts status 为空时返回所有未删除的提醒
func (s *AlertService) ListAlerts(ctx context.Context, userID string, status string) ([]model.FlightAlert, error) {
	st := model.AlertStatus(strings.ToUpper(status))
	if st != "" && st != model.AlertStatusActive && st != model.AlertStatusPaused {
		return nil, invalid("status must be ACTIVE or PAUSED")
	}
	return s.alerts.ListByUser(ctx, userID, st)
}

// UpdateAlert 修改频率时，ACTIVE 的提醒按新频率重新计算 nextCheckAt
func (s *AlertService) UpdateAlert(ctx context.Context, userID, alertID string, req dto.UpdateAlertRequest) (*model.FlightAlert, error) {
	alert, err := s.findOwned(ctx, userID, alertID)
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}
	if req.PriceThreshold != nil {
		if !req.PriceThreshold.IsPositive() {
			return nil, invalid("price_threshold must be greater than zero")
		}
		updates["price_threshold"] = *req.PriceThreshold
		alert.PriceThreshold = *req.PriceThreshold
	}
	if req.Airlines != nil {
		alert.Airlines = datatypes.NewJSONSlice(normalizeAirlines(*req.Airlines))
		updates["airlines"] = alert.Airlines
	}
	if req.MaxFlightDuration != nil {
		if *req.MaxFlightDuration < 0 {
			return nil, invalid("max_flight_duration must be a positive number of minutes")
		}
		// 0 表示取消时长限制
		if *req.MaxFlightDuration == 0 {
			alert.MaxFlightDuration = nil
		} else {
			alert.MaxFlightDuration = req.MaxFlightDuration
		}
		updates["max_flight_duration"] = alert.MaxFlightDuration
	}
	if req.DepartureDayShift != nil {
		if err := validateShifts("departure_day_shift", *req.DepartureDayShift); err != nil {
			return nil, err
		}
		alert.DepartureDayShift = datatypes.NewJSONSlice(shiftsOrEmpty(*req.DepartureDayShift))
		updates["departure_day_shift"] = alert.DepartureDayShift
	}
	if req.ReturnDayShift != nil {
		if alert.TripType != model.TripTypeRoundTrip && len(*req.ReturnDayShift) > 0 {
			return nil, invalid("return fields are only allowed for ROUND_TRIP")
		}
		if err := validateShifts("return_day_shift", *req.ReturnDayShift); err != nil {
			return nil, err
		}
		alert.ReturnDayShift = datatypes.NewJSONSlice(shiftsOrEmpty(*req.ReturnDayShift))
		updates["return_day_shift"] = alert.ReturnDayShift
	}
	if req.CheckFrequency != nil {
		if !req.CheckFrequency.Valid() {
			return nil, invalid("check_frequency %q is not supported", *req.CheckFrequency)
		}
		alert.CheckFrequency = *req.CheckFrequency
		updates["check_frequency"] = alert.CheckFrequency
	}
	reschedule := req.CheckFrequency != nil && alert.Status == model.AlertStatusActive

	if len(updates) == 0 {
		return alert, nil
	}

	updated, err := s.alerts.Update(ctx, alert.ID, updates)
	if err != nil {
		return nil, err
	}
	if !updated {
		return nil, pkgerrors.AlertNotFound
	}

	if !reschedule {
		return alert, nil
	}

	// nextCheckAt 只在仍为 ACTIVE 时写入，读取之后被暂停的提醒保持未调度
	next := s.now().UTC().Add(alert.CheckFrequency.Interval())
	scheduled, err := s.alerts.UpdateAlertSchedule(ctx, alert.ID, model.ScheduleUpdate{NextCheckAt: &next})
	if err != nil {
		return nil, err
	}
	if scheduled {
		alert.NextCheckAt = &next
		return alert, nil
	}

	current, err := s.alerts.FindUserAlert(ctx, userID, alert.ID)
	if err != nil {
		return nil, err
	}
	if current == nil {
		return nil, pkgerrors.AlertNotFound
	}
	return current, nil
}

// PauseAlert ACTIVE -> PAUSED，清空 nextCheckAt
func (s *AlertService) PauseAlert(ctx context.Context, userID, alertID string) (*model.FlightAlert, error) {
	return s.transition(ctx, userID, alertID, model.AlertStatusPaused)
}

// ResumeAlert PAUSED -> ACTIVE，nextCheckAt 设为当前时间
func (s *AlertService) ResumeAlert(ctx context.Context, userID, alertID string) (*model.FlightAlert, error) {
	return s.transition(ctx, userID, alertID, model.AlertStatusActive)
}

// DeleteAlert 软删除，DELETED 为终态
func (s *AlertService) DeleteAlert(ctx context.Context, userID, alertID string) error {
	_, err := s.transition(ctx, userID, alertID, model.AlertStatusDeleted)
	return err
}

func (s *AlertService) transition(ctx context.Context, userID, alertID string, to model.AlertStatus) (*model.FlightAlert, error) {
	alert, err := s.findOwned(ctx, userID, alertID)
	if err != nil {
		return nil, err
	}
	if !alert.Status.CanTransitionTo(to) {
		return nil, pkgerrors.AlertStatusInvalid
	}

	var next *time.Time
	if to == model.AlertStatusActive {
		now := s.now().UTC()
		next = &now
	}

	// 条件更新：状态在读取后被并发修改时不覆盖
	ok, err := s.alerts.Transition(ctx, alert.ID, alert.Status, to, next)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, pkgerrors.AlertStatusInvalid
	}

	logger.Logger.Info("Alert status changed",
		zap.String("alert_id", alert.ID),
		zap.String("from", string(alert.Status)),
		zap.String("to", string(to)),
	)

	alert.Status = to
	alert.NextCheckAt = next
	return alert, nil
}

package repository

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"gorm.io/gorm"

	"FareWatch/internal/model"
	"FareWatch/storage/database"
)

// AlertRepository flight_alerts 表的读写
type AlertRepository struct {
	db *gorm.DB
}

var (
	alertRepo     *AlertRepository
	alertRepoOnce sync.Once
)

// Alert 使用全局数据库连接
func Alert() *AlertRepository {
	alertRepoOnce.Do(func() {
		alertRepo = NewAlertRepository(database.DB())
	})
	return alertRepo
}

func NewAlertRepository(db *gorm.DB) *AlertRepository {
	return &AlertRepository{db: db}
}

func (r *AlertRepository) Create(ctx context.Context, alert *model.FlightAlert) error {
	if err := r.db.WithContext(ctx).Create(alert).Error; err != nil {
		return fmt.Errorf("create alert: %w", err)
	}
	return nil
}

// FindAlertByID 不存在时返回 nil, nil
func (r *AlertRepository) FindAlertByID(ctx context.Context, id string) (*model.FlightAlert, error) {
	var alert model.FlightAlert
	err := r.db.WithContext(ctx).Where("id = ?", id).Take(&alert).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find alert %s: %w", id, err)
	}
	return &alert, nil
}

// FindUserAlert 用户自己的未删除提醒，不存在时返回 nil, nil
func (r *AlertRepository) FindUserAlert(ctx context.Context, userID, id string) (*model.FlightAlert, error) {
	var alert model.FlightAlert
	err := r.db.WithContext(ctx).
		Where("id = ? AND user_id = ? AND status <> ?", id, userID, model.AlertStatusDeleted).
		Take(&alert).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find alert %s: %w", id, err)
	}
	return &alert, nil
}

// ListByUser 按创建时间倒序，status 为空时返回全部未删除提醒
func (r *AlertRepository) ListByUser(ctx context.Context, userID string, status model.AlertStatus) ([]model.FlightAlert, error) {
	q := r.db.WithContext(ctx).Where("user_id = ?", userID)
	if status != "" {
		q = q.Where("status = ?", status)
	} else {
		q = q.Where("status <> ?", model.AlertStatusDeleted)
	}

	var alerts []model.FlightAlert
	if err := q.Order("created_at DESC").Find(&alerts).Error; err != nil {
		return nil, fmt.Errorf("list alerts: %w", err)
	}
	return alerts, nil
}

// FindAlertsDueForCheck 到期的 ACTIVE 提醒 ID
func (r *AlertRepository) FindAlertsDueForCheck(ctx context.Context, now time.Time) ([]string, error) {
	var ids []string
	err := r.db.WithContext(ctx).
		Model(&model.FlightAlert{}).
		Where("status = ? AND next_check_at <= ?", model.AlertStatusActive, now).
		Order("next_check_at ASC").
		Pluck("id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("find due alerts: %w", err)
	}
	return ids, nil
}

// UpdateAlertSchedule 只在提醒仍为 ACTIVE 时写入，避免覆盖并发的暂停/删除
func (r *AlertRepository) UpdateAlertSchedule(ctx context.Context, id string, update model.ScheduleUpdate) (bool, error) {
	updates := map[string]interface{}{}
	if update.LastCheckedAt != nil {
		updates["last_checked_at"] = *update.LastCheckedAt
	}
	if update.NextCheckAt != nil {
		updates["next_check_at"] = *update.NextCheckAt
	}
	if len(updates) == 0 {
		return false, nil
	}

	res := r.db.WithContext(ctx).
		Model(&model.FlightAlert{}).
		Where("id = ? AND status = ?", id, model.AlertStatusActive).
		Updates(updates)
	if res.Error != nil {
		return false, fmt.Errorf("update alert schedule %s: %w", id, res.Error)
	}
	return res.RowsAffected > 0, nil
}

// Update 修改用户可编辑的字段，已删除的提醒不会被更新
func (r *AlertRepository) Update(ctx context.Context, id string, updates map[string]interface{}) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&model.FlightAlert{}).
		Where("id = ? AND status <> ?", id, model.AlertStatusDeleted).
		Updates(updates)
	if res.Error != nil {
		return false, fmt.Errorf("update alert %s: %w", id, res.Error)
	}
	return res.RowsAffected > 0, nil
}

// Transition 条件状态变更：只有当前状态为 from 时才切换到 to，同时写入 nextCheckAt（nil 表示清空）
func (r *AlertRepository) Transition(ctx context.Context, id string, from, to model.AlertStatus, nextCheckAt *time.Time) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&model.FlightAlert{}).
		Where("id = ? AND status = ?", id, from).
		Updates(map[string]interface{}{
			"status":        to,
			"next_check_at": nextCheckAt,
		})
	if res.Error != nil {
		return false, fmt.Errorf("transition alert %s to %s: %w", id, to, res.Error)
	}
	return res.RowsAffected > 0, nil
}

package model

import (
	"time"
)

// Timestamps 所有表共用的时间字段
type Timestamps struct {
	CreatedAt time.Time `gorm:"type:timestamptz;not null;default:now()" json:"created_at"`
	UpdatedAt time.Time `gorm:"type:timestamptz;not null;default:now()" json:"updated_at"`
}

// Package domain holds the audit trail for administrative quota actions.
package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// Actor types.
const (
	ActorTypeAdmin  = "admin"
	ActorTypeSystem = "system"
)

// Actions recorded by the quota and admin layers.
const (
	ActionPlanChange   = "plan_change"
	ActionBonusCredits = "bonus_credits"
	ActionMonthlyReset = "monthly_reset"
)

// AuditLog is one administrative action, attributable and append-only.
type AuditLog struct {
	ID           snowflake.ID      `gorm:"primaryKey" json:"id"`
	ActorType    string            `gorm:"type:text;not null" json:"actor_type"`
	ActorID      string            `gorm:"type:text;not null" json:"actor_id"`
	Action       string            `gorm:"type:text;not null;index" json:"action"`
	TargetUserID string            `gorm:"type:text;index" json:"target_user_id"`
	Reason       string            `gorm:"type:text" json:"reason"`
	Metadata     datatypes.JSONMap `json:"metadata"`
	CreatedAt    time.Time         `gorm:"not null;index" json:"created_at"`
}

// TableName sets the database table name.
func (AuditLog) TableName() string { return "audit_logs" }

// Entry is the write-side shape; ID and CreatedAt are assigned on record.
type Entry struct {
	ActorType    string
	ActorID      string
	Action       string
	TargetUserID string
	Reason       string
	Metadata     map[string]any
}

type Service interface {
	Record(ctx context.Context, entry Entry) error
	Recent(ctx context.Context, limit int) ([]*AuditLog, error)
}

var ErrInvalidAction = errors.New("invalid_action")

package models

import (
	"time"

	"gorm.io/gorm"
)

type EnumPlanStatus string

const (
	PlanStatusActive    EnumPlanStatus = "active"
	PlanStatusInQueue   EnumPlanStatus = "in_queue"
	PlanStatusExpired   EnumPlanStatus = "expired"
	PlanStatusCancelled EnumPlanStatus = "cancelled"
)

type EnumPlanType string

const (
	PlanTypeIndividual  EnumPlanType = "individual"
	PlanTypeQueueAuto   EnumPlanType = "queue_auto"
	PlanTypeQueueManual EnumPlanType = "queue_manual"
)

// UserPlan is a paid subscription window. "in_queue" is distinct from
// "active" so a plan whose VM assignment is pending cannot be expired or
// renewed out from under the queue. Expiry is applied by the sweep, not at
// write time; cancellation is always an explicit action.
type UserPlan struct {
	gorm.Model
	UserID       string         `gorm:"column:user_id;not null;index"`
	PlanID       string         `gorm:"column:plan_id;not null"`
	PlanName     string         `gorm:"column:plan_name;not null"`
	PlanType     EnumPlanType   `gorm:"column:plan_type;not null"`
	Status       EnumPlanStatus `gorm:"column:status;not null;index"`
	ActivatedAt  time.Time      `gorm:"column:activated_at;not null"`
	ExpiresAt    time.Time      `gorm:"column:expires_at;not null;index"`
	CancelDate   *time.Time     `gorm:"column:cancel_date"`
	CancelReason *string        `gorm:"column:cancel_reason"`
}

// Package planservice manages user plan records. Plans are created by the
// payment-confirmation flow, expired only by the sweep, and cancelled only
// by an explicit action here, never automatically.
package planservice

import (
	"context"
	"errors"
	"time"

	"vm-rental/internal/apperrors"
	"vm-rental/internal/models"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

type PlanService struct {
	db  *gorm.DB
	log *zap.Logger
}

func New(database *gorm.DB, log *zap.Logger) *PlanService {
	return &PlanService{db: database, log: log}
}

type CreatePlanParams struct {
	UserID   string
	PlanID   string
	PlanName string
	PlanType models.EnumPlanType
	Days     int
}

// Create records a freshly paid plan as active for the given number of
// days.
func (s *PlanService) Create(ctx context.Context, params CreatePlanParams) (*models.UserPlan, error) {
	if params.UserID == "" {
		return nil, apperrors.Validation("user_plan", "create", "user_id is required")
	}
	if params.PlanID == "" || params.PlanName == "" {
		return nil, apperrors.Validation("user_plan", "create", "plan_id and plan_name are required")
	}
	if params.Days <= 0 {
		return nil, apperrors.Validation("user_plan", "create", "days must be positive")
	}
	switch params.PlanType {
	case models.PlanTypeIndividual, models.PlanTypeQueueAuto, models.PlanTypeQueueManual:
	default:
		return nil, apperrors.Validation("user_plan", "create", "unknown plan type "+string(params.PlanType))
	}

	now := time.Now()
	plan := models.UserPlan{
		UserID:      params.UserID,
		PlanID:      params.PlanID,
		PlanName:    params.PlanName,
		PlanType:    params.PlanType,
		Status:      models.PlanStatusActive,
		ActivatedAt: now,
		ExpiresAt:   now.AddDate(0, 0, params.Days),
	}
	if err := s.db.WithContext(ctx).Create(&plan).Error; err != nil {
		return nil, apperrors.Internal("user_plan", "create", err)
	}

	s.log.Info("plan created",
		zap.Uint("plan_record_id", plan.ID),
		zap.String("user_id", params.UserID),
		zap.String("plan_name", params.PlanName),
		zap.Time("expires_at", plan.ExpiresAt))
	return &plan, nil
}

// Cancel closes a plan with a reason. Only live plans (active or queued)
// can be cancelled; an expired or already-cancelled plan is a conflict.
func (s *PlanService) Cancel(ctx context.Context, id uint, reason string) error {
	if reason == "" {
		return apperrors.Validation("user_plan", "cancel", "reason is required")
	}

	now := time.Now()
	res := s.db.WithContext(ctx).Model(&models.UserPlan{}).
		Where("id = ? AND status IN ?", id,
			[]models.EnumPlanStatus{models.PlanStatusActive, models.PlanStatusInQueue}).
		Updates(map[string]interface{}{
			"status":        models.PlanStatusCancelled,
			"cancel_date":   now,
			"cancel_reason": reason,
		})
	if res.Error != nil {
		return apperrors.Internal("user_plan", "cancel", res.Error)
	}
	if res.RowsAffected == 0 {
		var plan models.UserPlan
		err := s.db.WithContext(ctx).First(&plan, id).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperrors.NotFound("user_plan", "cancel", "no plan record with that id")
		}
		if err != nil {
			return apperrors.Internal("user_plan", "cancel", err)
		}
		return apperrors.Conflict("user_plan", "cancel", "plan is already "+string(plan.Status))
	}

	s.log.Info("plan cancelled", zap.Uint("plan_record_id", id), zap.String("reason", reason))
	return nil
}

// ListByUser returns a user's plans, newest first.
func (s *PlanService) ListByUser(ctx context.Context, userID string) ([]models.UserPlan, error) {
	if userID == "" {
		return nil, apperrors.Validation("user_plan", "list", "user_id is required")
	}

	var plans []models.UserPlan
	if err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).Order("id DESC").Find(&plans).Error; err != nil {
		return nil, apperrors.Internal("user_plan", "list", err)
	}
	return plans, nil
}

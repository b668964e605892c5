// Package sweepservice implements the periodic reclaim pass. Every sweep
// is idempotent and safe to re-run: detection is a cheap guarded bulk
// write, and resource release is a separate resumable step, so a crash
// between the two leaves an expired plan with a still-rented VM that the
// next release pass picks up.
package sweepservice

import (
	"context"
	"fmt"
	"time"

	"vm-rental/internal/apperrors"
	"vm-rental/internal/models"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Notifier receives pre-expiry warnings. Each session/threshold pair is
// delivered at most once across all sweep runs.
type Notifier interface {
	SessionWarning(ctx context.Context, session *models.DiskSession, minutesLeft int) error
}

// LogNotifier writes warnings to the log. Production wires the push
// notification sender here.
type LogNotifier struct {
	Log *zap.Logger
}

func (n *LogNotifier) SessionWarning(ctx context.Context, session *models.DiskSession, minutesLeft int) error {
	n.Log.Info("session expiry warning",
		zap.Uint("session_id", session.ID),
		zap.String("user_id", session.UserID),
		zap.Int("minutes_left", minutesLeft),
		zap.Time("expires_at", session.ExpiresAt))
	return nil
}

type SweepService struct {
	db       *gorm.DB
	notifier Notifier
	log      *zap.Logger
}

func New(database *gorm.DB, notifier Notifier, log *zap.Logger) *SweepService {
	return &SweepService{db: database, notifier: notifier, log: log}
}

// PlanSweepReport summarizes one expired-plan detection pass.
type PlanSweepReport struct {
	Expired int64 `json:"expired"`
}

// SweepExpiredPlans flips every active plan past its expiry to expired.
// It does not touch VMs; ReleaseExpiredRentals does that separately.
// Already-expired plans never match again, so re-running is a no-op.
func (s *SweepService) SweepExpiredPlans(ctx context.Context) (*PlanSweepReport, error) {
	res := s.db.WithContext(ctx).Model(&models.UserPlan{}).
		Where("status = ? AND expires_at < ?", models.PlanStatusActive, time.Now()).
		Update("status", models.PlanStatusExpired)
	if res.Error != nil {
		return nil, apperrors.Internal("user_plan", "sweep_expired", res.Error)
	}

	if res.RowsAffected > 0 {
		s.log.Info("plans expired", zap.Int64("count", res.RowsAffected))
	}
	return &PlanSweepReport{Expired: res.RowsAffected}, nil
}

// ReleaseReport summarizes one rental release pass.
type ReleaseReport struct {
	Released int      `json:"released"`
	Failed   []string `json:"failed,omitempty"`
}

// ReleaseExpiredRentals unrents every VM whose rental ran past its
// expiration date. One bad record never aborts the pass.
func (s *SweepService) ReleaseExpiredRentals(ctx context.Context) (*ReleaseReport, error) {
	var vms []models.VMRecord
	if err := s.db.WithContext(ctx).
		Where("system_status = ? AND plan_expiration_date < ?", models.SystemStatusRented, time.Now()).
		Find(&vms).Error; err != nil {
		return nil, apperrors.Internal("vm", "release_expired", err)
	}

	report := &ReleaseReport{}
	for i := range vms {
		vm := &vms[i]
		res := s.db.WithContext(ctx).Model(&models.VMRecord{}).
			Where("id = ? AND system_status = ?", vm.ID, models.SystemStatusRented).
			Updates(map[string]interface{}{
				"system_status":        models.SystemStatusAvailable,
				"owner_id":             nil,
				"plan_name":            nil,
				"plan_expiration_date": nil,
			})
		if res.Error != nil {
			s.log.Error("release of expired rental failed",
				zap.Uint("vm_id", vm.ID), zap.Error(res.Error))
			report.Failed = append(report.Failed, fmt.Sprintf("vm %d", vm.ID))
			continue
		}
		if res.RowsAffected == 0 {
			// Unrented between detection and release; nothing to do.
			continue
		}
		report.Released++
		s.log.Info("expired rental released",
			zap.Uint("vm_id", vm.ID), zap.String("azure_vm_name", vm.AzureVMName))
	}
	return report, nil
}

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

// warningThresholds pairs each pre-expiry notice with its flag column.
// The window test is "expires_at < now + threshold" with no lower bound,
// so a window crossed entirely between two sweep runs is still caught.
var warningThresholds = []struct {
	Minutes int
	Column  string
}{
	{10, "warning_10min_sent"},
	{5, "warning_5min_sent"},
	{1, "warning_1min_sent"},
}

// WarningReport summarizes one warning sweep.
type WarningReport struct {
	Sent   int      `json:"sent"`
	Failed []string `json:"failed,omitempty"`
}

// SweepSessionWarnings fires the 10/5/1-minute notices for active disk
// sessions approaching expiry. The flag is claimed with a guarded update
// before notifying, so a flag set once is never re-fired, including by a
// concurrent sweep.
func (s *SweepService) SweepSessionWarnings(ctx context.Context) (*WarningReport, error) {
	report := &WarningReport{}

	for _, threshold := range warningThresholds {
		deadline := time.Now().Add(time.Duration(threshold.Minutes) * time.Minute)

		var sessions []models.DiskSession
		err := s.db.WithContext(ctx).
			Where("status = ? AND "+threshold.Column+" = ? AND expires_at < ?",
				models.SessionStatusActive, false, deadline).
			Find(&sessions).Error
		if err != nil {
			return nil, apperrors.Internal("disk_session", "sweep_warnings", err)
		}

		for i := range sessions {
			session := &sessions[i]

			res := s.db.WithContext(ctx).Model(&models.DiskSession{}).
				Where("id = ? AND "+threshold.Column+" = ?", session.ID, false).
				Update(threshold.Column, true)
			if res.Error != nil {
				s.log.Error("warning flag update failed",
					zap.Uint("session_id", session.ID), zap.Error(res.Error))
				report.Failed = append(report.Failed, fmt.Sprintf("session %d", session.ID))
				continue
			}
			if res.RowsAffected == 0 {
				// Another sweep claimed this warning first.
				continue
			}

			if err := s.notifier.SessionWarning(ctx, session, threshold.Minutes); err != nil {
				s.log.Error("warning notification failed",
					zap.Uint("session_id", session.ID),
					zap.Int("minutes_left", threshold.Minutes),
					zap.Error(err))
				report.Failed = append(report.Failed, fmt.Sprintf("session %d", session.ID))
				continue
			}
			report.Sent++
		}
	}

	return report, nil
}

// SessionSweepReport summarizes one expired-session reclaim pass.
type SessionSweepReport struct {
	Reclaimed int      `json:"reclaimed"`
	Failed    []string `json:"failed,omitempty"`
}

// SweepExpiredSessions terminates every active disk session past its
// expiry: the session is marked expired with a termination reason, the
// disk goes back to available and the host's seat count is decremented.
// Each session is reclaimed independently.
func (s *SweepService) SweepExpiredSessions(ctx context.Context) (*SessionSweepReport, error) {
	var sessions []models.DiskSession
	if err := s.db.WithContext(ctx).
		Where("status = ? AND expires_at < ?", models.SessionStatusActive, time.Now()).
		Find(&sessions).Error; err != nil {
		return nil, apperrors.Internal("disk_session", "sweep_expired", err)
	}

	report := &SessionSweepReport{}
	for i := range sessions {
		session := &sessions[i]
		if err := s.reclaimSession(ctx, session); err != nil {
			s.log.Error("session reclaim failed",
				zap.Uint("session_id", session.ID), zap.Error(err))
			report.Failed = append(report.Failed, fmt.Sprintf("session %d", session.ID))
			continue
		}
		report.Reclaimed++
	}
	return report, nil
}

func (s *SweepService) reclaimSession(ctx context.Context, session *models.DiskSession) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.DiskSession{}).
			Where("id = ? AND status = ?", session.ID, models.SessionStatusActive).
			Updates(map[string]interface{}{
				"status":             models.SessionStatusExpired,
				"termination_reason": "session time expired",
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			// Completed or reclaimed since detection.
			return nil
		}

		if err := tx.Model(&models.UserDisk{}).
			Where("id = ? AND status = ?", session.UserDiskID, models.DiskStatusInUse).
			Update("status", models.DiskStatusAvailable).Error; err != nil {
			return err
		}

		if err := tx.Model(&models.DiskVM{}).
			Where("id = ? AND current_users > 0", session.DiskVMID).
			Update("current_users", gorm.Expr("current_users - 1")).Error; err != nil {
			return err
		}

		s.log.Info("expired session reclaimed",
			zap.Uint("session_id", session.ID),
			zap.String("user_id", session.UserID),
			zap.Uint("user_disk_id", session.UserDiskID))
		return nil
	})
}

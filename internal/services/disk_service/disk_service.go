// Package diskservice runs the time-boxed disk session pool: the same
// claim/expiry pattern as the VM rental, except a session's end is a fixed
// duration from creation and several sessions may share one host VM up to
// its seat limit.
package diskservice

import (
	"context"
	"errors"
	"fmt"
	"time"

	"vm-rental/internal/apperrors"
	"vm-rental/internal/models"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

type DiskService struct {
	db  *gorm.DB
	log *zap.Logger
}

func New(database *gorm.DB, log *zap.Logger) *DiskService {
	return &DiskService{db: database, log: log}
}

// StartSession attaches a user disk to a host VM for the given duration.
// The disk claim (one active session per disk) and the host seat claim
// (current_users below the limit) are both guarded updates inside one
// transaction, so a lost race rolls back cleanly.
func (s *DiskService) StartSession(ctx context.Context, userDiskID, diskVMID uint, userID string, duration time.Duration) (*models.DiskSession, error) {
	if userID == "" {
		return nil, apperrors.Validation("disk_session", "start", "user_id is required")
	}
	if duration <= 0 {
		return nil, apperrors.Validation("disk_session", "start", "duration must be positive")
	}

	var session models.DiskSession
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.UserDisk{}).
			Where("id = ? AND status = ?", userDiskID, models.DiskStatusAvailable).
			Update("status", models.DiskStatusInUse)
		if res.Error != nil {
			return apperrors.Internal("user_disk", "start", res.Error)
		}
		if res.RowsAffected == 0 {
			var disk models.UserDisk
			err := tx.First(&disk, userDiskID).Error
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperrors.NotFound("user_disk", "start", "no disk record with that id")
			}
			if err != nil {
				return apperrors.Internal("user_disk", "start", err)
			}
			return apperrors.Conflict("user_disk", "start",
				"disk is "+string(disk.Status)+", not available")
		}

		res = tx.Model(&models.DiskVM{}).
			Where("id = ? AND current_users < max_concurrent_users", diskVMID).
			Update("current_users", gorm.Expr("current_users + 1"))
		if res.Error != nil {
			return apperrors.Internal("disk_vm", "start", res.Error)
		}
		if res.RowsAffected == 0 {
			var host models.DiskVM
			err := tx.First(&host, diskVMID).Error
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperrors.NotFound("disk_vm", "start", "no host vm record with that id")
			}
			if err != nil {
				return apperrors.Internal("disk_vm", "start", err)
			}
			return apperrors.Conflict("disk_vm", "start",
				fmt.Sprintf("host is full (%d/%d users)", host.CurrentUsers, host.MaxConcurrentUsers))
		}

		now := time.Now()
		session = models.DiskSession{
			UserDiskID: userDiskID,
			DiskVMID:   diskVMID,
			UserID:     userID,
			StartedAt:  now,
			ExpiresAt:  now.Add(duration),
			Status:     models.SessionStatusActive,
		}
		if err := tx.Create(&session).Error; err != nil {
			return apperrors.Internal("disk_session", "start", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("disk session started",
		zap.Uint("session_id", session.ID),
		zap.String("user_id", userID),
		zap.Uint("user_disk_id", userDiskID),
		zap.Uint("disk_vm_id", diskVMID),
		zap.Time("expires_at", session.ExpiresAt))
	return &session, nil
}

// CompleteSession ends a session normally and releases its resources.
func (s *DiskService) CompleteSession(ctx context.Context, sessionID uint) error {
	return s.release(ctx, sessionID, models.SessionStatusCompleted, "completed by user")
}

// TerminateSession ends a session by operator action, recording why.
func (s *DiskService) TerminateSession(ctx context.Context, sessionID uint, reason string) error {
	if reason == "" {
		return apperrors.Validation("disk_session", "terminate", "reason is required")
	}
	return s.release(ctx, sessionID, models.SessionStatusTerminated, reason)
}

// release moves an active session to a terminal status, frees the disk
// and gives the host seat back. Guarded on the active status so a session
// can only be released once.
func (s *DiskService) release(ctx context.Context, sessionID uint, status models.EnumSessionStatus, reason string) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var session models.DiskSession
		err := tx.First(&session, sessionID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperrors.NotFound("disk_session", "release", "no session record with that id")
		}
		if err != nil {
			return apperrors.Internal("disk_session", "release", err)
		}

		res := tx.Model(&models.DiskSession{}).
			Where("id = ? AND status = ?", sessionID, models.SessionStatusActive).
			Updates(map[string]interface{}{
				"status":             status,
				"termination_reason": reason,
			})
		if res.Error != nil {
			return apperrors.Internal("disk_session", "release", res.Error)
		}
		if res.RowsAffected == 0 {
			return apperrors.Conflict("disk_session", "release",
				"session is already "+string(session.Status))
		}

		if err := tx.Model(&models.UserDisk{}).
			Where("id = ? AND status = ?", session.UserDiskID, models.DiskStatusInUse).
			Update("status", models.DiskStatusAvailable).Error; err != nil {
			return apperrors.Internal("user_disk", "release", err)
		}

		if err := tx.Model(&models.DiskVM{}).
			Where("id = ? AND current_users > 0", session.DiskVMID).
			Update("current_users", gorm.Expr("current_users - 1")).Error; err != nil {
			return apperrors.Internal("disk_vm", "release", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.log.Info("disk session released",
		zap.Uint("session_id", sessionID), zap.String("status", string(status)))
	return nil
}

// ActiveSessions lists every running session, soonest expiry first.
func (s *DiskService) ActiveSessions(ctx context.Context) ([]models.DiskSession, error) {
	var sessions []models.DiskSession
	if err := s.db.WithContext(ctx).
		Where("status = ?", models.SessionStatusActive).
		Order("expires_at ASC").Find(&sessions).Error; err != nil {
		return nil, apperrors.Internal("disk_session", "list", err)
	}
	return sessions, nil
}

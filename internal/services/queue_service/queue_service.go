// Package queueservice coordinates the waiting list for pooled plans,
// where many users share a smaller VM pool. A single instance is
// constructed per process and injected everywhere; its mutex serializes
// queue mutations so two renumbering passes can never interleave.
package queueservice

import (
	"context"
	"errors"
	"sync"
	"time"

	"vm-rental/internal/apperrors"
	"vm-rental/internal/models"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

type QueueService struct {
	db  *gorm.DB
	log *zap.Logger
	mu  sync.Mutex
}

func New(database *gorm.DB, log *zap.Logger) *QueueService {
	return &QueueService{db: database, log: log}
}

// Join places a user at the tail of the waiting list and flips their plan
// to in_queue. A user with a live entry, waiting or active, cannot join
// again.
func (s *QueueService) Join(ctx context.Context, userID, planID string) (*models.QueueEntry, error) {
	if userID == "" {
		return nil, apperrors.Validation("queue_entry", "join", "user_id is required")
	}
	if planID == "" {
		return nil, apperrors.Validation("queue_entry", "join", "plan_id is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var entry models.QueueEntry
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing models.QueueEntry
		err := tx.Where("user_id = ?", userID).First(&existing).Error
		if err == nil {
			return apperrors.Conflict("queue_entry", "join",
				"user already has a "+string(existing.Status)+" queue entry")
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return apperrors.Internal("queue_entry", "join", err)
		}

		var plan models.UserPlan
		err = tx.Where("user_id = ? AND plan_id = ?", userID, planID).
			Order("id DESC").First(&plan).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperrors.NotFound("user_plan", "join", "user has no plan "+planID)
		}
		if err != nil {
			return apperrors.Internal("user_plan", "join", err)
		}
		if plan.PlanType == models.PlanTypeIndividual {
			return apperrors.Validation("queue_entry", "join", "plan "+planID+" is not a pooled plan")
		}

		var waiting int64
		if err := tx.Model(&models.QueueEntry{}).
			Where("status = ?", models.QueueStatusWaiting).Count(&waiting).Error; err != nil {
			return apperrors.Internal("queue_entry", "join", err)
		}

		entry = models.QueueEntry{
			UserID:   userID,
			PlanID:   planID,
			Position: int(waiting) + 1,
			Status:   models.QueueStatusWaiting,
			JoinedAt: time.Now(),
		}
		if err := tx.Create(&entry).Error; err != nil {
			return apperrors.Internal("queue_entry", "join", err)
		}

		// The plan must still be active at this instant; a second join or a
		// concurrent cancellation makes this match nothing.
		res := tx.Model(&models.UserPlan{}).
			Where("id = ? AND status = ?", plan.ID, models.PlanStatusActive).
			Update("status", models.PlanStatusInQueue)
		if res.Error != nil {
			return apperrors.Internal("user_plan", "join", res.Error)
		}
		if res.RowsAffected == 0 {
			return apperrors.Conflict("user_plan", "join",
				"plan is "+string(plan.Status)+", cannot enter the queue")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("user joined queue",
		zap.String("user_id", userID),
		zap.String("plan_id", planID),
		zap.Int("position", entry.Position))
	return &entry, nil
}

// Activate hands a machine to the user's waiting entry. The machine claim
// is a guarded update on the VM pool, identical to renting.
func (s *QueueService) Activate(ctx context.Context, userID string, machineID uint) (*models.QueueEntry, error) {
	if userID == "" {
		return nil, apperrors.Validation("queue_entry", "activate", "user_id is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var entry models.QueueEntry
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Where("user_id = ? AND status = ?", userID, models.QueueStatusWaiting).
			First(&entry).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperrors.NotFound("queue_entry", "activate", "user has no waiting entry")
		}
		if err != nil {
			return apperrors.Internal("queue_entry", "activate", err)
		}

		res := tx.Model(&models.VMRecord{}).
			Where("id = ? AND owner_id IS NULL AND reserved_reason IS NULL AND system_status = ?",
				machineID, models.SystemStatusAvailable).
			Updates(map[string]interface{}{
				"system_status": models.SystemStatusOccupiedQueue,
				"owner_id":      userID,
			})
		if res.Error != nil {
			return apperrors.Internal("vm", "activate", res.Error)
		}
		if res.RowsAffected == 0 {
			var machine models.VMRecord
			if err := tx.First(&machine, machineID).Error; err != nil {
				return apperrors.NotFound("vm", "activate", "no vm record with that id")
			}
			return apperrors.Conflict("vm", "activate",
				"machine is "+string(machine.SystemStatus)+", not available")
		}

		if err := tx.Model(&entry).Updates(map[string]interface{}{
			"status":     models.QueueStatusActive,
			"machine_id": machineID,
		}).Error; err != nil {
			return apperrors.Internal("queue_entry", "activate", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("queue entry activated",
		zap.String("user_id", userID), zap.Uint("machine_id", machineID))
	return &entry, nil
}

// Complete removes the user's entry, frees the bound machine, flips the
// plan back to active and renumbers the remaining waiting entries.
func (s *QueueService) Complete(ctx context.Context, userID string) error {
	if userID == "" {
		return apperrors.Validation("queue_entry", "complete", "user_id is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var entry models.QueueEntry
		err := tx.Where("user_id = ?", userID).First(&entry).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperrors.NotFound("queue_entry", "complete", "user has no queue entry")
		}
		if err != nil {
			return apperrors.Internal("queue_entry", "complete", err)
		}

		if entry.MachineID != nil {
			res := tx.Model(&models.VMRecord{}).
				Where("id = ? AND system_status = ?", *entry.MachineID, models.SystemStatusOccupiedQueue).
				Updates(map[string]interface{}{
					"system_status": models.SystemStatusAvailable,
					"owner_id":      nil,
				})
			if res.Error != nil {
				return apperrors.Internal("vm", "complete", res.Error)
			}
			if res.RowsAffected == 0 {
				s.log.Warn("bound machine was not in occupied_queue on completion",
					zap.String("user_id", userID), zap.Uint("machine_id", *entry.MachineID))
			}
		}

		// The plan may have been cancelled while queued; completion still
		// proceeds, it only reports the missed flip.
		res := tx.Model(&models.UserPlan{}).
			Where("user_id = ? AND plan_id = ? AND status = ?",
				userID, entry.PlanID, models.PlanStatusInQueue).
			Update("status", models.PlanStatusActive)
		if res.Error != nil {
			return apperrors.Internal("user_plan", "complete", res.Error)
		}
		if res.RowsAffected == 0 {
			s.log.Warn("no in_queue plan to reactivate on completion",
				zap.String("user_id", userID), zap.String("plan_id", entry.PlanID))
		}

		if err := tx.Unscoped().Delete(&entry).Error; err != nil {
			return apperrors.Internal("queue_entry", "complete", err)
		}

		return s.renumber(tx)
	})
	if err != nil {
		return err
	}

	s.log.Info("queue entry completed", zap.String("user_id", userID))
	return nil
}

// RenumberPositions rewrites the positions of all waiting entries as a
// dense 1..N sequence, FIFO by join time. Normally triggered by Complete;
// exposed for operators repairing a queue after manual edits.
func (s *QueueService) RenumberPositions(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return s.renumber(tx)
	})
}

// renumber must run inside a transaction with the service mutex held.
// Ties on joined_at fall back to insertion order.
func (s *QueueService) renumber(tx *gorm.DB) error {
	var waiting []models.QueueEntry
	if err := tx.Where("status = ?", models.QueueStatusWaiting).
		Order("joined_at ASC, id ASC").Find(&waiting).Error; err != nil {
		return apperrors.Internal("queue_entry", "renumber", err)
	}

	for i := range waiting {
		want := i + 1
		if waiting[i].Position == want {
			continue
		}
		if err := tx.Model(&waiting[i]).Update("position", want).Error; err != nil {
			return apperrors.Internal("queue_entry", "renumber", err)
		}
	}
	return nil
}

// QueueStats is the operator dashboard summary.
type QueueStats struct {
	Waiting            int64      `json:"waiting"`
	Active             int64      `json:"active"`
	MachinesInUse      int64      `json:"machines_in_use"`
	OldestWaitingSince *time.Time `json:"oldest_waiting_since,omitempty"`
}

// Stats reports queue depth and machine usage.
func (s *QueueService) Stats(ctx context.Context) (*QueueStats, error) {
	stats := &QueueStats{}

	if err := s.db.WithContext(ctx).Model(&models.QueueEntry{}).
		Where("status = ?", models.QueueStatusWaiting).Count(&stats.Waiting).Error; err != nil {
		return nil, apperrors.Internal("queue_entry", "stats", err)
	}
	if err := s.db.WithContext(ctx).Model(&models.QueueEntry{}).
		Where("status = ?", models.QueueStatusActive).Count(&stats.Active).Error; err != nil {
		return nil, apperrors.Internal("queue_entry", "stats", err)
	}
	if err := s.db.WithContext(ctx).Model(&models.VMRecord{}).
		Where("system_status = ?", models.SystemStatusOccupiedQueue).Count(&stats.MachinesInUse).Error; err != nil {
		return nil, apperrors.Internal("vm", "stats", err)
	}

	var head models.QueueEntry
	err := s.db.WithContext(ctx).Where("status = ?", models.QueueStatusWaiting).
		Order("joined_at ASC, id ASC").First(&head).Error
	if err == nil {
		stats.OldestWaitingSince = &head.JoinedAt
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.Internal("queue_entry", "stats", err)
	}

	return stats, nil
}

// Package vmservice owns the VM allocation state machine: the five
// system statuses and the legal transitions among them. Every transition
// that assigns ownership is a conditional update guarded on the current
// ownership columns, so the store itself rejects the losing writer of a
// race and zero rows affected is surfaced as a conflict.
package vmservice

import (
	"context"
	"errors"
	"time"

	"vm-rental/internal/apperrors"
	"vm-rental/internal/azure"
	"vm-rental/internal/models"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

type VMService struct {
	db      *gorm.DB
	gateway azure.Gateway
	log     *zap.Logger
}

func New(database *gorm.DB, gateway azure.Gateway, log *zap.Logger) *VMService {
	return &VMService{db: database, gateway: gateway, log: log}
}

// Register binds a provider VM to a store record with status available.
// The provider is consulted first; a gateway failure leaves no record.
func (s *VMService) Register(ctx context.Context, azureVMName string) (*models.VMRecord, error) {
	if azureVMName == "" {
		return nil, apperrors.Validation("vm", "register", "azure_vm_name is required")
	}

	var existing models.VMRecord
	err := s.db.WithContext(ctx).Where("azure_vm_name = ?", azureVMName).First(&existing).Error
	if err == nil {
		return nil, apperrors.Conflict("vm", "register", "vm "+azureVMName+" is already registered")
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.Internal("vm", "register", err)
	}

	info, err := s.gateway.GetVM(ctx, azureVMName)
	if err != nil {
		if errors.Is(err, azure.ErrNotFound) {
			return nil, apperrors.NotFound("vm", "register", "provider has no vm named "+azureVMName)
		}
		return nil, apperrors.Upstream("vm", "register", err)
	}

	record := models.VMRecord{
		Name:         azureVMName,
		AzureVMName:  azureVMName,
		SystemStatus: models.SystemStatusAvailable,
		AzureStatus:  info.PowerState,
	}
	if err := s.db.WithContext(ctx).Create(&record).Error; err != nil {
		// A concurrent register may have won the unique index; re-read to
		// report it as a conflict rather than a store failure.
		var raced models.VMRecord
		if s.db.WithContext(ctx).Where("azure_vm_name = ?", azureVMName).First(&raced).Error == nil {
			return nil, apperrors.Conflict("vm", "register", "vm "+azureVMName+" is already registered")
		}
		return nil, apperrors.Internal("vm", "register", err)
	}

	s.log.Info("vm registered",
		zap.Uint("vm_id", record.ID),
		zap.String("azure_vm_name", azureVMName),
		zap.String("power_state", info.PowerState))
	return &record, nil
}

// Unregister removes a record from the pool. Rejected while the VM is
// rented or serving the queue. The row is removed outright so the provider
// name can be registered again later.
func (s *VMService) Unregister(ctx context.Context, id uint) error {
	record, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if record.Occupied() {
		return apperrors.Conflict("vm", "unregister", "vm is "+string(record.SystemStatus)+", release it first")
	}

	if err := s.db.WithContext(ctx).Unscoped().Delete(&models.VMRecord{}, id).Error; err != nil {
		return apperrors.Internal("vm", "unregister", err)
	}

	s.log.Info("vm unregistered", zap.Uint("vm_id", id), zap.String("azure_vm_name", record.AzureVMName))
	return nil
}

// Rent assigns a VM to a user for a number of days. First-writer-wins:
// the update only matches an unowned, unreserved, available row.
func (s *VMService) Rent(ctx context.Context, id uint, userID, planName string, days int) (*models.VMRecord, error) {
	if userID == "" {
		return nil, apperrors.Validation("vm", "rent", "user_id is required")
	}
	if planName == "" {
		return nil, apperrors.Validation("vm", "rent", "plan_name is required")
	}
	if days <= 0 {
		return nil, apperrors.Validation("vm", "rent", "days must be positive")
	}

	expiration := time.Now().AddDate(0, 0, days)
	res := s.db.WithContext(ctx).Model(&models.VMRecord{}).
		Where("id = ? AND owner_id IS NULL AND reserved_reason IS NULL AND system_status = ?",
			id, models.SystemStatusAvailable).
		Updates(map[string]interface{}{
			"system_status":        models.SystemStatusRented,
			"owner_id":             userID,
			"plan_name":            planName,
			"plan_expiration_date": expiration,
		})
	if res.Error != nil {
		return nil, apperrors.Internal("vm", "rent", res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, s.explainRejection(ctx, id, "rent")
	}

	record, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	s.log.Info("vm rented",
		zap.Uint("vm_id", id),
		zap.String("owner_id", userID),
		zap.String("plan_name", planName),
		zap.Time("expires_at", expiration))
	return record, nil
}

// Unrent returns a rented VM to the pool, clearing owner, plan and
// expiration together.
func (s *VMService) Unrent(ctx context.Context, id uint) error {
	res := s.db.WithContext(ctx).Model(&models.VMRecord{}).
		Where("id = ? AND system_status = ?", id, models.SystemStatusRented).
		Updates(map[string]interface{}{
			"system_status":        models.SystemStatusAvailable,
			"owner_id":             nil,
			"plan_name":            nil,
			"plan_expiration_date": nil,
		})
	if res.Error != nil {
		return apperrors.Internal("vm", "unrent", res.Error)
	}
	if res.RowsAffected == 0 {
		record, err := s.Get(ctx, id)
		if err != nil {
			return err
		}
		return apperrors.Conflict("vm", "unrent", "vm is "+string(record.SystemStatus)+", not rented")
	}

	s.log.Info("vm unrented", zap.Uint("vm_id", id))
	return nil
}

// Reserve blocks an available VM from rental and queue assignment.
func (s *VMService) Reserve(ctx context.Context, id uint, reservedBy, reason string) error {
	if reason == "" {
		return apperrors.Validation("vm", "reserve", "reason is required")
	}

	res := s.db.WithContext(ctx).Model(&models.VMRecord{}).
		Where("id = ? AND owner_id IS NULL AND reserved_reason IS NULL AND system_status = ?",
			id, models.SystemStatusAvailable).
		Updates(map[string]interface{}{
			"system_status":   models.SystemStatusReserved,
			"reserved_by":     reservedBy,
			"reserved_reason": reason,
		})
	if res.Error != nil {
		return apperrors.Internal("vm", "reserve", res.Error)
	}
	if res.RowsAffected == 0 {
		return s.explainRejection(ctx, id, "reserve")
	}

	s.log.Info("vm reserved", zap.Uint("vm_id", id), zap.String("reserved_by", reservedBy), zap.String("reason", reason))
	return nil
}

// Unreserve lifts a reservation.
func (s *VMService) Unreserve(ctx context.Context, id uint) error {
	res := s.db.WithContext(ctx).Model(&models.VMRecord{}).
		Where("id = ? AND system_status = ?", id, models.SystemStatusReserved).
		Updates(map[string]interface{}{
			"system_status":   models.SystemStatusAvailable,
			"reserved_by":     nil,
			"reserved_reason": nil,
		})
	if res.Error != nil {
		return apperrors.Internal("vm", "unreserve", res.Error)
	}
	if res.RowsAffected == 0 {
		record, err := s.Get(ctx, id)
		if err != nil {
			return err
		}
		return apperrors.Conflict("vm", "unreserve", "vm is "+string(record.SystemStatus)+", not reserved")
	}

	s.log.Info("vm unreserved", zap.Uint("vm_id", id))
	return nil
}

// Get loads one record by id.
func (s *VMService) Get(ctx context.Context, id uint) (*models.VMRecord, error) {
	var record models.VMRecord
	if err := s.db.WithContext(ctx).First(&record, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound("vm", "get", "no vm record with that id")
		}
		return nil, apperrors.Internal("vm", "get", err)
	}
	return &record, nil
}

// explainRejection re-reads a row after a guarded update matched nothing,
// to distinguish a missing record from a lost race.
func (s *VMService) explainRejection(ctx context.Context, id uint, action string) error {
	record, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	switch {
	case record.OwnerID != nil:
		return apperrors.Conflict("vm", action, "vm is already assigned to user "+*record.OwnerID)
	case record.ReservedReason != nil:
		return apperrors.Conflict("vm", action, "vm is reserved: "+*record.ReservedReason)
	default:
		return apperrors.Conflict("vm", action, "vm is "+string(record.SystemStatus)+", not available")
	}
}

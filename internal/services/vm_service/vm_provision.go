package vmservice

import (
	"context"
	"errors"

	"vm-rental/internal/apperrors"
	"vm-rental/internal/azure"
	"vm-rental/internal/models"

	"go.uber.org/zap"
)

// Provision creates a brand-new provider VM and registers it in one flow.
// Provider success is verified before anything is persisted; if the store
// insert then fails, the fresh provider VM is deleted again so the two
// sides cannot drift.
func (s *VMService) Provision(ctx context.Context, spec azure.CreateVMSpec) (*models.VMRecord, error) {
	if spec.Name == "" {
		return nil, apperrors.Validation("vm", "provision", "name is required")
	}
	if spec.Size == "" {
		return nil, apperrors.Validation("vm", "provision", "size is required")
	}
	if spec.NetworkInterfaceID == "" {
		return nil, apperrors.Validation("vm", "provision", "network_interface_id is required")
	}

	var existing models.VMRecord
	err := s.db.WithContext(ctx).Where("azure_vm_name = ?", spec.Name).First(&existing).Error
	if err == nil {
		return nil, apperrors.Conflict("vm", "provision", "vm "+spec.Name+" is already registered")
	}

	providerID, err := s.gateway.CreateVM(ctx, spec)
	if err != nil {
		return nil, apperrors.Upstream("vm", "provision", err)
	}

	record := models.VMRecord{
		Name:         spec.Name,
		AzureVMName:  spec.Name,
		SystemStatus: models.SystemStatusAvailable,
		AzureStatus:  "running",
	}
	if err := s.db.WithContext(ctx).Create(&record).Error; err != nil {
		if delErr := s.gateway.DeleteVM(ctx, spec.Name); delErr != nil {
			s.log.Error("rollback of provisioned vm failed, provider resource is orphaned",
				zap.String("azure_vm_name", spec.Name), zap.Error(delErr))
		}
		return nil, apperrors.Internal("vm", "provision", err)
	}

	s.log.Info("vm provisioned and registered",
		zap.Uint("vm_id", record.ID),
		zap.String("azure_vm_name", spec.Name),
		zap.String("provider_id", providerID))
	return &record, nil
}

// Deprovision unregisters a VM and deletes the provider resource behind
// it. Refused while the VM is rented or serving the queue. The record is
// removed first; a provider VM left behind by a delete failure is
// harmless and reported, the reverse would leak a rentable record with no
// machine under it.
func (s *VMService) Deprovision(ctx context.Context, id uint) error {
	record, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if record.Occupied() {
		return apperrors.Conflict("vm", "deprovision", "vm is "+string(record.SystemStatus)+", release it first")
	}

	if err := s.db.WithContext(ctx).Unscoped().Delete(&models.VMRecord{}, id).Error; err != nil {
		return apperrors.Internal("vm", "deprovision", err)
	}

	if err := s.gateway.DeleteVM(ctx, record.AzureVMName); err != nil && !errors.Is(err, azure.ErrNotFound) {
		s.log.Error("provider delete failed after unregister",
			zap.String("azure_vm_name", record.AzureVMName), zap.Error(err))
		return apperrors.Upstream("vm", "deprovision", err)
	}

	s.log.Info("vm deprovisioned", zap.Uint("vm_id", id), zap.String("azure_vm_name", record.AzureVMName))
	return nil
}

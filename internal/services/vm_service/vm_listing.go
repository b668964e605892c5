package vmservice

import (
	"context"

	"vm-rental/internal/apperrors"
	"vm-rental/internal/models"

	"go.uber.org/zap"
)

// MergedVM joins a store record with the provider's view. Provider VMs
// absent from the store are listed as unregistered with status forced to
// maintenance, whatever their observed power state.
type MergedVM struct {
	Record      *models.VMRecord        `json:"record,omitempty"`
	AzureVMName string                  `json:"azure_vm_name"`
	PowerState  string                  `json:"power_state,omitempty"`
	Registered  bool                    `json:"registered"`
	Status      models.EnumSystemStatus `json:"status"`
}

// ListResult carries the merged pool. Degraded is set when the provider
// listing failed after returning partial data, in which case power states
// come from the store's last observation only.
type ListResult struct {
	VMs      []MergedVM `json:"vms"`
	Degraded bool       `json:"degraded"`
}

// ListMerged reads the store pool and overlays the provider listing.
// Provider failure with zero results fails the read as retryable; provider
// failure after partial results degrades to store data instead.
func (s *VMService) ListMerged(ctx context.Context) (*ListResult, error) {
	var records []models.VMRecord
	if err := s.db.WithContext(ctx).Order("id").Find(&records).Error; err != nil {
		return nil, apperrors.Internal("vm", "list", err)
	}

	infos, listErr := s.gateway.ListVMs(ctx)
	if listErr != nil && len(infos) == 0 {
		return nil, apperrors.Upstream("vm", "list", listErr)
	}

	result := &ListResult{Degraded: listErr != nil}
	if listErr != nil {
		s.log.Warn("provider listing incomplete, serving degraded view",
			zap.Int("provider_vms", len(infos)), zap.Error(listErr))
	}

	byName := make(map[string]string, len(infos))
	for _, info := range infos {
		byName[info.Name] = info.PowerState
	}

	seen := make(map[string]bool, len(records))
	for i := range records {
		record := &records[i]
		seen[record.AzureVMName] = true

		power := record.AzureStatus
		if state, ok := byName[record.AzureVMName]; ok && state != "" {
			power = state
		}
		result.VMs = append(result.VMs, MergedVM{
			Record:      record,
			AzureVMName: record.AzureVMName,
			PowerState:  power,
			Registered:  true,
			Status:      record.SystemStatus,
		})
	}

	// Unregistered provider VMs are not rentable until registered.
	for _, info := range infos {
		if seen[info.Name] {
			continue
		}
		result.VMs = append(result.VMs, MergedVM{
			AzureVMName: info.Name,
			PowerState:  info.PowerState,
			Registered:  false,
			Status:      models.SystemStatusMaintenance,
		})
	}

	return result, nil
}

// RefreshReport summarizes a power-state refresh pass.
type RefreshReport struct {
	Updated int      `json:"updated"`
	Failed  []string `json:"failed,omitempty"`
}

// RefreshPowerStates re-reads the provider power state of every registered
// VM and stores it in the advisory azure_status column. Allocation state is
// never touched. Individual provider failures are collected, not fatal.
func (s *VMService) RefreshPowerStates(ctx context.Context) (*RefreshReport, error) {
	var records []models.VMRecord
	if err := s.db.WithContext(ctx).Find(&records).Error; err != nil {
		return nil, apperrors.Internal("vm", "refresh", err)
	}

	report := &RefreshReport{}
	for i := range records {
		record := &records[i]
		state, err := s.gateway.PowerState(ctx, record.AzureVMName)
		if err != nil {
			s.log.Warn("power state refresh failed",
				zap.String("azure_vm_name", record.AzureVMName), zap.Error(err))
			report.Failed = append(report.Failed, record.AzureVMName)
			continue
		}
		if state == record.AzureStatus {
			continue
		}
		if err := s.db.WithContext(ctx).Model(record).Update("azure_status", state).Error; err != nil {
			report.Failed = append(report.Failed, record.AzureVMName)
			continue
		}
		report.Updated++
	}
	return report, nil
}

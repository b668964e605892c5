package models

import (
	"time"

	"gorm.io/gorm"
)

type EnumSystemStatus string

const (
	SystemStatusAvailable     EnumSystemStatus = "available"
	SystemStatusOccupiedQueue EnumSystemStatus = "occupied_queue"
	SystemStatusRented        EnumSystemStatus = "rented"
	SystemStatusReserved      EnumSystemStatus = "reserved"
	SystemStatusMaintenance   EnumSystemStatus = "maintenance"
)

// VMRecord tracks a rentable virtual machine. The record is the source of
// truth for allocation; AzureStatus mirrors the provider's last observed
// power state and never drives allocation decisions.
type VMRecord struct {
	gorm.Model
	Name               string           `gorm:"column:name;not null"`                         // Internal display name
	AzureVMName        string           `gorm:"column:azure_vm_name;uniqueIndex;not null"`    // Provider-side identity
	SystemStatus       EnumSystemStatus `gorm:"column:system_status;not null;index"`          // Allocation state
	AzureStatus        string           `gorm:"column:azure_status"`                          // Last observed power state (advisory)
	OwnerID            *string          `gorm:"column:owner_id;index"`                        // Set iff rented or occupied_queue
	ReservedBy         *string          `gorm:"column:reserved_by"`                           // Operator who reserved the VM
	ReservedReason     *string          `gorm:"column:reserved_reason"`                       // Set iff reserved
	PlanName           *string          `gorm:"column:plan_name"`                             // Plan the VM was rented under
	PlanExpirationDate *time.Time       `gorm:"column:plan_expiration_date"`                  // Rental end date
}

// Occupied reports whether the VM currently has an exclusive user.
func (v *VMRecord) Occupied() bool {
	return v.SystemStatus == SystemStatusRented || v.SystemStatus == SystemStatusOccupiedQueue
}

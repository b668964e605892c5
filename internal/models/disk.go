package models

import (
	"time"

	"gorm.io/gorm"
)

type EnumDiskStatus string

const (
	DiskStatusAvailable   EnumDiskStatus = "available"
	DiskStatusInUse       EnumDiskStatus = "in_use"
	DiskStatusMaintenance EnumDiskStatus = "maintenance"
)

// UserDisk is a customer's persistent disk. A disk holds at most one
// active session at a time, enforced through the in_use status.
type UserDisk struct {
	gorm.Model
	UserID string         `gorm:"column:user_id;not null;index"`
	Name   string         `gorm:"column:name;not null"`
	SizeGB int            `gorm:"column:size_gb;not null"`
	Status EnumDiskStatus `gorm:"column:status;not null;index"`
}

// DiskVM is a shared host machine disk sessions attach to. Unlike the
// exclusive-owner rental pool, several sessions may share one host up to
// MaxConcurrentUsers.
type DiskVM struct {
	gorm.Model
	Name               string `gorm:"column:name;not null"`
	AzureVMName        string `gorm:"column:azure_vm_name;uniqueIndex;not null"`
	CurrentUsers       int    `gorm:"column:current_users;not null;default:0"`
	MaxConcurrentUsers int    `gorm:"column:max_concurrent_users;not null"`
}

type EnumSessionStatus string

const (
	SessionStatusActive     EnumSessionStatus = "active"
	SessionStatusCompleted  EnumSessionStatus = "completed"
	SessionStatusExpired    EnumSessionStatus = "expired"
	SessionStatusTerminated EnumSessionStatus = "terminated"
)

// DiskSession is a time-boxed attachment of a user disk to a host VM.
// Expiry is a fixed duration from creation, unlike the calendar-dated VM
// rental. Each warning flag fires at most once per session.
type DiskSession struct {
	gorm.Model
	UserDiskID        uint              `gorm:"column:user_disk_id;not null;index"`
	DiskVMID          uint              `gorm:"column:disk_vm_id;not null;index"`
	UserID            string            `gorm:"column:user_id;not null;index"`
	StartedAt         time.Time         `gorm:"column:started_at;not null"`
	ExpiresAt         time.Time         `gorm:"column:expires_at;not null;index"`
	Status            EnumSessionStatus `gorm:"column:status;not null;index"`
	Warning10Sent     bool              `gorm:"column:warning_10min_sent;not null;default:false"`
	Warning5Sent      bool              `gorm:"column:warning_5min_sent;not null;default:false"`
	Warning1Sent      bool              `gorm:"column:warning_1min_sent;not null;default:false"`
	TerminationReason *string           `gorm:"column:termination_reason"`
}

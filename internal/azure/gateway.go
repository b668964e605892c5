// Package azure wraps the Azure Compute control plane behind a small
// gateway interface. The store stays the source of truth for allocation;
// this package only realizes and observes provider resources.
package azure

import (
	"context"
	"errors"
)

// ErrNotFound is returned when the provider has no VM with the given name.
var ErrNotFound = errors.New("vm not found in provider")

// VMInfo is the provider-side view of a virtual machine.
type VMInfo struct {
	Name       string `json:"name"`
	ID         string `json:"id"`
	Location   string `json:"location"`
	PowerState string `json:"power_state"`
	Size       string `json:"size"`
}

// CreateVMSpec carries everything needed to realize a new VM.
type CreateVMSpec struct {
	Name               string
	Size               string
	AdminUsername      string
	AdminPassword      string
	ImagePublisher     string
	ImageOffer         string
	ImageSKU           string
	ImageVersion       string
	NetworkInterfaceID string
	OSDiskSizeGB       int32
}

// Gateway is the provisioning surface consumed by the services.
//
// ListVMs may return partial results together with a non-nil error when the
// provider listing fails midway; callers use whatever was obtained and
// surface a degraded signal instead of failing the whole read.
type Gateway interface {
	ListVMs(ctx context.Context) ([]VMInfo, error)
	GetVM(ctx context.Context, name string) (*VMInfo, error)
	CreateVM(ctx context.Context, spec CreateVMSpec) (string, error)
	DeleteVM(ctx context.Context, name string) error
	PowerState(ctx context.Context, name string) (string, error)
}

package azure

import (
	"context"
	"fmt"
	"sync"
)

// MockGateway is an in-memory Gateway for tests and local development.
type MockGateway struct {
	mu  sync.Mutex
	vms map[string]VMInfo

	// ListErr, when set, is returned by ListVMs after ListPartial entries
	// to exercise the degraded-read path.
	ListErr     error
	ListPartial int
}

func NewMockGateway(vms ...VMInfo) *MockGateway {
	m := &MockGateway{vms: make(map[string]VMInfo)}
	for _, vm := range vms {
		m.vms[vm.Name] = vm
	}
	return m
}

func (m *MockGateway) ListVMs(ctx context.Context) ([]VMInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []VMInfo
	for _, vm := range m.vms {
		out = append(out, vm)
	}
	if m.ListErr != nil {
		if m.ListPartial < len(out) {
			out = out[:m.ListPartial]
		}
		return out, m.ListErr
	}
	return out, nil
}

func (m *MockGateway) GetVM(ctx context.Context, name string) (*VMInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	vm, ok := m.vms[name]
	if !ok {
		return nil, ErrNotFound
	}
	return &vm, nil
}

func (m *MockGateway) CreateVM(ctx context.Context, spec CreateVMSpec) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.vms[spec.Name]; ok {
		return "", fmt.Errorf("vm %q already exists", spec.Name)
	}
	vm := VMInfo{
		Name:       spec.Name,
		ID:         "/subscriptions/mock/resourceGroups/mock/providers/Microsoft.Compute/virtualMachines/" + spec.Name,
		Location:   "mock",
		PowerState: "running",
		Size:       spec.Size,
	}
	m.vms[spec.Name] = vm
	return vm.ID, nil
}

func (m *MockGateway) DeleteVM(ctx context.Context, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.vms[name]; !ok {
		return ErrNotFound
	}
	delete(m.vms, name)
	return nil
}

func (m *MockGateway) PowerState(ctx context.Context, name string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	vm, ok := m.vms[name]
	if !ok {
		return "", ErrNotFound
	}
	return vm.PowerState, nil
}

// SetPowerState updates a mock VM's observed power state.
func (m *MockGateway) SetPowerState(name, state string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if vm, ok := m.vms[name]; ok {
		vm.PowerState = state
		m.vms[name] = vm
	}
}

package azure

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/to"
	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	armcompute "github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/compute/armcompute/v6"
)

// ComputeGateway implements Gateway on the Azure Compute SDK, scoped to a
// single resource group.
type ComputeGateway struct {
	client        *armcompute.VirtualMachinesClient
	resourceGroup string
	location      string
}

// NewComputeGateway builds a gateway using the default credential chain
// (environment, workload identity, managed identity, CLI).
func NewComputeGateway(subscriptionID, resourceGroup, location string) (*ComputeGateway, error) {
	if subscriptionID == "" {
		return nil, errors.New("azure subscription id is required")
	}

	cred, err := azidentity.NewDefaultAzureCredential(nil)
	if err != nil {
		return nil, fmt.Errorf("build azure credential: %w", err)
	}

	client, err := armcompute.NewVirtualMachinesClient(subscriptionID, cred, nil)
	if err != nil {
		return nil, fmt.Errorf("build compute client: %w", err)
	}

	return &ComputeGateway{
		client:        client,
		resourceGroup: resourceGroup,
		location:      location,
	}, nil
}

// ListVMs pages through the resource group. Pages fetched before a pager
// failure are returned alongside the error.
func (g *ComputeGateway) ListVMs(ctx context.Context) ([]VMInfo, error) {
	var vms []VMInfo

	pager := g.client.NewListPager(g.resourceGroup, nil)
	for pager.More() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			return vms, fmt.Errorf("list vms: %w", err)
		}
		for _, vm := range page.Value {
			vms = append(vms, infoFromVM(vm))
		}
	}

	return vms, nil
}

func (g *ComputeGateway) GetVM(ctx context.Context, name string) (*VMInfo, error) {
	resp, err := g.client.Get(ctx, g.resourceGroup, name, &armcompute.VirtualMachinesClientGetOptions{
		Expand: to.Ptr(armcompute.InstanceViewTypesInstanceView),
	})
	if err != nil {
		if isNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get vm %q: %w", name, err)
	}

	info := infoFromVM(&resp.VirtualMachine)
	if resp.Properties != nil && resp.Properties.InstanceView != nil {
		info.PowerState = powerStateFromStatuses(resp.Properties.InstanceView.Statuses)
	}
	return &info, nil
}

func (g *ComputeGateway) CreateVM(ctx context.Context, spec CreateVMSpec) (string, error) {
	params := armcompute.VirtualMachine{
		Location: to.Ptr(g.location),
		Properties: &armcompute.VirtualMachineProperties{
			HardwareProfile: &armcompute.HardwareProfile{
				VMSize: to.Ptr(armcompute.VirtualMachineSizeTypes(spec.Size)),
			},
			OSProfile: &armcompute.OSProfile{
				ComputerName:  to.Ptr(spec.Name),
				AdminUsername: to.Ptr(spec.AdminUsername),
				AdminPassword: to.Ptr(spec.AdminPassword),
			},
			StorageProfile: &armcompute.StorageProfile{
				ImageReference: &armcompute.ImageReference{
					Publisher: to.Ptr(spec.ImagePublisher),
					Offer:     to.Ptr(spec.ImageOffer),
					SKU:       to.Ptr(spec.ImageSKU),
					Version:   to.Ptr(spec.ImageVersion),
				},
				OSDisk: &armcompute.OSDisk{
					CreateOption: to.Ptr(armcompute.DiskCreateOptionTypesFromImage),
					DiskSizeGB:   to.Ptr(spec.OSDiskSizeGB),
				},
			},
			NetworkProfile: &armcompute.NetworkProfile{
				NetworkInterfaces: []*armcompute.NetworkInterfaceReference{
					{ID: to.Ptr(spec.NetworkInterfaceID)},
				},
			},
		},
	}

	poller, err := g.client.BeginCreateOrUpdate(ctx, g.resourceGroup, spec.Name, params, nil)
	if err != nil {
		return "", fmt.Errorf("begin create vm %q: %w", spec.Name, err)
	}
	resp, err := poller.PollUntilDone(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("create vm %q: %w", spec.Name, err)
	}

	if resp.ID == nil {
		return "", fmt.Errorf("create vm %q: provider returned no id", spec.Name)
	}
	return *resp.ID, nil
}

func (g *ComputeGateway) DeleteVM(ctx context.Context, name string) error {
	poller, err := g.client.BeginDelete(ctx, g.resourceGroup, name, nil)
	if err != nil {
		if isNotFound(err) {
			return ErrNotFound
		}
		return fmt.Errorf("begin delete vm %q: %w", name, err)
	}
	if _, err := poller.PollUntilDone(ctx, nil); err != nil {
		return fmt.Errorf("delete vm %q: %w", name, err)
	}
	return nil
}

func (g *ComputeGateway) PowerState(ctx context.Context, name string) (string, error) {
	resp, err := g.client.InstanceView(ctx, g.resourceGroup, name, nil)
	if err != nil {
		if isNotFound(err) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("instance view %q: %w", name, err)
	}
	return powerStateFromStatuses(resp.Statuses), nil
}

func infoFromVM(vm *armcompute.VirtualMachine) VMInfo {
	info := VMInfo{}
	if vm.Name != nil {
		info.Name = *vm.Name
	}
	if vm.ID != nil {
		info.ID = *vm.ID
	}
	if vm.Location != nil {
		info.Location = *vm.Location
	}
	if vm.Properties != nil && vm.Properties.HardwareProfile != nil && vm.Properties.HardwareProfile.VMSize != nil {
		info.Size = string(*vm.Properties.HardwareProfile.VMSize)
	}
	return info
}

// powerStateFromStatuses extracts the "PowerState/xxx" status code from an
// instance view, e.g. "running" or "deallocated".
func powerStateFromStatuses(statuses []*armcompute.InstanceViewStatus) string {
	for _, s := range statuses {
		if s == nil || s.Code == nil {
			continue
		}
		if state, ok := strings.CutPrefix(*s.Code, "PowerState/"); ok {
			return state
		}
	}
	return "unknown"
}

func isNotFound(err error) bool {
	var respErr *azcore.ResponseError
	return errors.As(err, &respErr) && respErr.StatusCode == http.StatusNotFound
}

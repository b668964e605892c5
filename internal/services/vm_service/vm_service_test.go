package vmservice

import (
	"context"
	"testing"
	"time"

	"vm-rental/internal/apperrors"
	"vm-rental/internal/azure"
	"vm-rental/internal/models"
	"vm-rental/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newService(t *testing.T, gateway azure.Gateway) *VMService {
	t.Helper()
	return New(testutil.OpenTestDB(t), gateway, zap.NewNop())
}

func TestRegisterRentUnrentUnregisterRoundTrip(t *testing.T) {
	ctx := context.Background()
	gateway := azure.NewMockGateway(azure.VMInfo{Name: "gpu-01", PowerState: "running"})
	svc := newService(t, gateway)

	record, err := svc.Register(ctx, "gpu-01")
	require.NoError(t, err)
	assert.Equal(t, models.SystemStatusAvailable, record.SystemStatus)
	assert.Nil(t, record.OwnerID)
	assert.Equal(t, "running", record.AzureStatus)

	rented, err := svc.Rent(ctx, record.ID, "u1", "Semanal", 7)
	require.NoError(t, err)
	assert.Equal(t, models.SystemStatusRented, rented.SystemStatus)
	require.NotNil(t, rented.OwnerID)
	assert.Equal(t, "u1", *rented.OwnerID)
	require.NotNil(t, rented.PlanExpirationDate)
	assert.WithinDuration(t, time.Now().AddDate(0, 0, 7), *rented.PlanExpirationDate, time.Minute)

	require.NoError(t, svc.Unrent(ctx, record.ID))
	freed, err := svc.Get(ctx, record.ID)
	require.NoError(t, err)
	assert.Equal(t, models.SystemStatusAvailable, freed.SystemStatus)
	assert.Nil(t, freed.OwnerID)
	assert.Nil(t, freed.PlanName)
	assert.Nil(t, freed.PlanExpirationDate)

	require.NoError(t, svc.Unregister(ctx, record.ID))
	_, err = svc.Get(ctx, record.ID)
	assert.True(t, apperrors.IsKind(err, apperrors.KindNotFound))

	// The provider name is free again after unregistering.
	_, err = svc.Register(ctx, "gpu-01")
	require.NoError(t, err)
}

func TestRegisterDuplicateConflict(t *testing.T) {
	ctx := context.Background()
	gateway := azure.NewMockGateway(azure.VMInfo{Name: "gpu-01", PowerState: "running"})
	svc := newService(t, gateway)

	_, err := svc.Register(ctx, "gpu-01")
	require.NoError(t, err)

	_, err = svc.Register(ctx, "gpu-01")
	assert.True(t, apperrors.IsKind(err, apperrors.KindConflict))
}

func TestRegisterUnknownProviderVM(t *testing.T) {
	ctx := context.Background()
	svc := newService(t, azure.NewMockGateway())

	_, err := svc.Register(ctx, "ghost")
	assert.True(t, apperrors.IsKind(err, apperrors.KindNotFound))
}

func TestRentConflictLeavesStateUnchanged(t *testing.T) {
	ctx := context.Background()
	gateway := azure.NewMockGateway(azure.VMInfo{Name: "gpu-01", PowerState: "running"})
	svc := newService(t, gateway)

	record, err := svc.Register(ctx, "gpu-01")
	require.NoError(t, err)
	_, err = svc.Rent(ctx, record.ID, "u1", "Semanal", 7)
	require.NoError(t, err)

	_, err = svc.Rent(ctx, record.ID, "u2", "Mensal", 30)
	assert.True(t, apperrors.IsKind(err, apperrors.KindConflict))

	current, err := svc.Get(ctx, record.ID)
	require.NoError(t, err)
	require.NotNil(t, current.OwnerID)
	assert.Equal(t, "u1", *current.OwnerID)
	require.NotNil(t, current.PlanName)
	assert.Equal(t, "Semanal", *current.PlanName)
}

func TestRentValidation(t *testing.T) {
	ctx := context.Background()
	gateway := azure.NewMockGateway(azure.VMInfo{Name: "gpu-01"})
	svc := newService(t, gateway)

	record, err := svc.Register(ctx, "gpu-01")
	require.NoError(t, err)

	_, err = svc.Rent(ctx, record.ID, "", "Semanal", 7)
	assert.True(t, apperrors.IsKind(err, apperrors.KindValidation))
	_, err = svc.Rent(ctx, record.ID, "u1", "", 7)
	assert.True(t, apperrors.IsKind(err, apperrors.KindValidation))
	_, err = svc.Rent(ctx, record.ID, "u1", "Semanal", 0)
	assert.True(t, apperrors.IsKind(err, apperrors.KindValidation))

	// No mutation happened.
	current, err := svc.Get(ctx, record.ID)
	require.NoError(t, err)
	assert.Equal(t, models.SystemStatusAvailable, current.SystemStatus)
}

func TestOwnershipAndReservationAreExclusive(t *testing.T) {
	ctx := context.Background()
	gateway := azure.NewMockGateway(
		azure.VMInfo{Name: "gpu-01"},
		azure.VMInfo{Name: "gpu-02"},
	)
	svc := newService(t, gateway)

	rentedVM, err := svc.Register(ctx, "gpu-01")
	require.NoError(t, err)
	reservedVM, err := svc.Register(ctx, "gpu-02")
	require.NoError(t, err)

	_, err = svc.Rent(ctx, rentedVM.ID, "u1", "Semanal", 7)
	require.NoError(t, err)
	require.NoError(t, svc.Reserve(ctx, reservedVM.ID, "admin", "hardware swap"))

	// A rented VM cannot be reserved, a reserved VM cannot be rented.
	err = svc.Reserve(ctx, rentedVM.ID, "admin", "maintenance")
	assert.True(t, apperrors.IsKind(err, apperrors.KindConflict))
	_, err = svc.Rent(ctx, reservedVM.ID, "u2", "Semanal", 7)
	assert.True(t, apperrors.IsKind(err, apperrors.KindConflict))

	for _, id := range []uint{rentedVM.ID, reservedVM.ID} {
		record, err := svc.Get(ctx, id)
		require.NoError(t, err)
		bothSet := record.OwnerID != nil && record.ReservedReason != nil
		assert.False(t, bothSet, "owner and reservation must never coexist")
	}

	require.NoError(t, svc.Unreserve(ctx, reservedVM.ID))
	record, err := svc.Get(ctx, reservedVM.ID)
	require.NoError(t, err)
	assert.Equal(t, models.SystemStatusAvailable, record.SystemStatus)
	assert.Nil(t, record.ReservedReason)
}

func TestReserveRequiresReason(t *testing.T) {
	ctx := context.Background()
	gateway := azure.NewMockGateway(azure.VMInfo{Name: "gpu-01"})
	svc := newService(t, gateway)

	record, err := svc.Register(ctx, "gpu-01")
	require.NoError(t, err)

	err = svc.Reserve(ctx, record.ID, "admin", "")
	assert.True(t, apperrors.IsKind(err, apperrors.KindValidation))
}

func TestUnregisterRejectedWhileOccupied(t *testing.T) {
	ctx := context.Background()
	gateway := azure.NewMockGateway(azure.VMInfo{Name: "gpu-01"})
	svc := newService(t, gateway)

	record, err := svc.Register(ctx, "gpu-01")
	require.NoError(t, err)
	_, err = svc.Rent(ctx, record.ID, "u1", "Semanal", 7)
	require.NoError(t, err)

	err = svc.Unregister(ctx, record.ID)
	assert.True(t, apperrors.IsKind(err, apperrors.KindConflict))
}

func TestUnrentNotRentedConflict(t *testing.T) {
	ctx := context.Background()
	gateway := azure.NewMockGateway(azure.VMInfo{Name: "gpu-01"})
	svc := newService(t, gateway)

	record, err := svc.Register(ctx, "gpu-01")
	require.NoError(t, err)

	err = svc.Unrent(ctx, record.ID)
	assert.True(t, apperrors.IsKind(err, apperrors.KindConflict))
}

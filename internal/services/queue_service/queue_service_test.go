package queueservice

import (
	"context"
	"testing"
	"time"

	"vm-rental/internal/apperrors"
	"vm-rental/internal/models"
	"vm-rental/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func newService(t *testing.T) (*QueueService, *gorm.DB) {
	t.Helper()
	database := testutil.OpenTestDB(t)
	return New(database, zap.NewNop()), database
}

func seedPlan(t *testing.T, database *gorm.DB, userID, planID string, planType models.EnumPlanType, status models.EnumPlanStatus) *models.UserPlan {
	t.Helper()
	now := time.Now()
	plan := models.UserPlan{
		UserID:      userID,
		PlanID:      planID,
		PlanName:    "Fila " + planID,
		PlanType:    planType,
		Status:      status,
		ActivatedAt: now,
		ExpiresAt:   now.AddDate(0, 0, 30),
	}
	require.NoError(t, database.Create(&plan).Error)
	return &plan
}

func seedMachine(t *testing.T, database *gorm.DB, name string) *models.VMRecord {
	t.Helper()
	machine := models.VMRecord{
		Name:         name,
		AzureVMName:  name,
		SystemStatus: models.SystemStatusAvailable,
	}
	require.NoError(t, database.Create(&machine).Error)
	return &machine
}

func TestJoinAssignsFIFOPositions(t *testing.T) {
	ctx := context.Background()
	svc, database := newService(t)

	for i, userID := range []string{"u1", "u2", "u3"} {
		seedPlan(t, database, userID, "fila-auto", models.PlanTypeQueueAuto, models.PlanStatusActive)
		entry, err := svc.Join(ctx, userID, "fila-auto")
		require.NoError(t, err)
		assert.Equal(t, i+1, entry.Position)
	}
}

func TestJoinFlipsPlanToInQueue(t *testing.T) {
	ctx := context.Background()
	svc, database := newService(t)

	plan := seedPlan(t, database, "u1", "fila-auto", models.PlanTypeQueueAuto, models.PlanStatusActive)
	_, err := svc.Join(ctx, "u1", "fila-auto")
	require.NoError(t, err)

	var fresh models.UserPlan
	require.NoError(t, database.First(&fresh, plan.ID).Error)
	assert.Equal(t, models.PlanStatusInQueue, fresh.Status)
}

func TestJoinAtMostOneEntryPerUser(t *testing.T) {
	ctx := context.Background()
	svc, database := newService(t)

	seedPlan(t, database, "u1", "fila-auto", models.PlanTypeQueueAuto, models.PlanStatusActive)
	_, err := svc.Join(ctx, "u1", "fila-auto")
	require.NoError(t, err)

	_, err = svc.Join(ctx, "u1", "fila-auto")
	assert.True(t, apperrors.IsKind(err, apperrors.KindConflict))

	// The rejected join altered nothing.
	var count int64
	require.NoError(t, database.Model(&models.QueueEntry{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestJoinRejectsNonPooledPlan(t *testing.T) {
	ctx := context.Background()
	svc, database := newService(t)

	seedPlan(t, database, "u1", "solo", models.PlanTypeIndividual, models.PlanStatusActive)
	_, err := svc.Join(ctx, "u1", "solo")
	assert.True(t, apperrors.IsKind(err, apperrors.KindValidation))
}

func TestJoinRejectsPlanAlreadyInQueue(t *testing.T) {
	ctx := context.Background()
	svc, database := newService(t)

	seedPlan(t, database, "u1", "fila-auto", models.PlanTypeQueueAuto, models.PlanStatusInQueue)
	_, err := svc.Join(ctx, "u1", "fila-auto")
	assert.True(t, apperrors.IsKind(err, apperrors.KindConflict))
}

func TestJoinUnknownPlan(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t)

	_, err := svc.Join(ctx, "u1", "fila-auto")
	assert.True(t, apperrors.IsKind(err, apperrors.KindNotFound))
}

func TestCompleteRenumbersDensely(t *testing.T) {
	ctx := context.Background()
	svc, database := newService(t)

	for _, userID := range []string{"u1", "u2", "u3"} {
		seedPlan(t, database, userID, "fila-auto", models.PlanTypeQueueAuto, models.PlanStatusActive)
		_, err := svc.Join(ctx, userID, "fila-auto")
		require.NoError(t, err)
	}

	require.NoError(t, svc.Complete(ctx, "u1"))

	var waiting []models.QueueEntry
	require.NoError(t, database.
		Where("status = ?", models.QueueStatusWaiting).
		Order("position ASC").Find(&waiting).Error)
	require.Len(t, waiting, 2)
	assert.Equal(t, "u2", waiting[0].UserID)
	assert.Equal(t, 1, waiting[0].Position)
	assert.Equal(t, "u3", waiting[1].UserID)
	assert.Equal(t, 2, waiting[1].Position)
}

func TestActivateBindsMachine(t *testing.T) {
	ctx := context.Background()
	svc, database := newService(t)

	seedPlan(t, database, "u1", "fila-auto", models.PlanTypeQueueAuto, models.PlanStatusActive)
	machine := seedMachine(t, database, "fila-gpu-01")
	_, err := svc.Join(ctx, "u1", "fila-auto")
	require.NoError(t, err)

	entry, err := svc.Activate(ctx, "u1", machine.ID)
	require.NoError(t, err)
	assert.Equal(t, models.QueueStatusActive, entry.Status)
	require.NotNil(t, entry.MachineID)
	assert.Equal(t, machine.ID, *entry.MachineID)

	var freshMachine models.VMRecord
	require.NoError(t, database.First(&freshMachine, machine.ID).Error)
	assert.Equal(t, models.SystemStatusOccupiedQueue, freshMachine.SystemStatus)
	require.NotNil(t, freshMachine.OwnerID)
	assert.Equal(t, "u1", *freshMachine.OwnerID)
}

func TestActivateWithoutWaitingEntry(t *testing.T) {
	ctx := context.Background()
	svc, database := newService(t)

	machine := seedMachine(t, database, "fila-gpu-01")
	_, err := svc.Activate(ctx, "u1", machine.ID)
	assert.True(t, apperrors.IsKind(err, apperrors.KindNotFound))
}

func TestActivateMachineNotAvailable(t *testing.T) {
	ctx := context.Background()
	svc, database := newService(t)

	seedPlan(t, database, "u1", "fila-auto", models.PlanTypeQueueAuto, models.PlanStatusActive)
	seedPlan(t, database, "u2", "fila-auto", models.PlanTypeQueueAuto, models.PlanStatusActive)
	machine := seedMachine(t, database, "fila-gpu-01")

	_, err := svc.Join(ctx, "u1", "fila-auto")
	require.NoError(t, err)
	_, err = svc.Join(ctx, "u2", "fila-auto")
	require.NoError(t, err)

	_, err = svc.Activate(ctx, "u1", machine.ID)
	require.NoError(t, err)

	_, err = svc.Activate(ctx, "u2", machine.ID)
	assert.True(t, apperrors.IsKind(err, apperrors.KindConflict))
}

func TestCompleteFreesMachineAndReactivatesPlan(t *testing.T) {
	ctx := context.Background()
	svc, database := newService(t)

	plan := seedPlan(t, database, "u1", "fila-auto", models.PlanTypeQueueAuto, models.PlanStatusActive)
	machine := seedMachine(t, database, "fila-gpu-01")

	_, err := svc.Join(ctx, "u1", "fila-auto")
	require.NoError(t, err)
	_, err = svc.Activate(ctx, "u1", machine.ID)
	require.NoError(t, err)

	require.NoError(t, svc.Complete(ctx, "u1"))

	var freshMachine models.VMRecord
	require.NoError(t, database.First(&freshMachine, machine.ID).Error)
	assert.Equal(t, models.SystemStatusAvailable, freshMachine.SystemStatus)
	assert.Nil(t, freshMachine.OwnerID)

	var freshPlan models.UserPlan
	require.NoError(t, database.First(&freshPlan, plan.ID).Error)
	assert.Equal(t, models.PlanStatusActive, freshPlan.Status)

	var count int64
	require.NoError(t, database.Model(&models.QueueEntry{}).Count(&count).Error)
	assert.EqualValues(t, 0, count)

	// The user can queue again after completing.
	_, err = svc.Join(ctx, "u1", "fila-auto")
	require.NoError(t, err)
}

func TestCompleteUnknownUser(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t)

	err := svc.Complete(ctx, "nobody")
	assert.True(t, apperrors.IsKind(err, apperrors.KindNotFound))
}

func TestRenumberKeepsJoinOrderOnTies(t *testing.T) {
	ctx := context.Background()
	svc, database := newService(t)

	// Same join timestamp; insertion order breaks the tie.
	now := time.Now()
	for _, userID := range []string{"u1", "u2", "u3"} {
		entry := models.QueueEntry{
			UserID:   userID,
			PlanID:   "fila-auto",
			Position: 99,
			Status:   models.QueueStatusWaiting,
			JoinedAt: now,
		}
		require.NoError(t, database.Create(&entry).Error)
	}

	require.NoError(t, svc.RenumberPositions(ctx))

	var waiting []models.QueueEntry
	require.NoError(t, database.
		Where("status = ?", models.QueueStatusWaiting).
		Order("position ASC").Find(&waiting).Error)
	require.Len(t, waiting, 3)
	for i, userID := range []string{"u1", "u2", "u3"} {
		assert.Equal(t, userID, waiting[i].UserID)
		assert.Equal(t, i+1, waiting[i].Position)
	}
}

func TestStats(t *testing.T) {
	ctx := context.Background()
	svc, database := newService(t)

	seedPlan(t, database, "u1", "fila-auto", models.PlanTypeQueueAuto, models.PlanStatusActive)
	seedPlan(t, database, "u2", "fila-auto", models.PlanTypeQueueAuto, models.PlanStatusActive)
	machine := seedMachine(t, database, "fila-gpu-01")

	_, err := svc.Join(ctx, "u1", "fila-auto")
	require.NoError(t, err)
	_, err = svc.Join(ctx, "u2", "fila-auto")
	require.NoError(t, err)
	_, err = svc.Activate(ctx, "u1", machine.ID)
	require.NoError(t, err)

	stats, err := svc.Stats(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, stats.Waiting)
	assert.EqualValues(t, 1, stats.Active)
	assert.EqualValues(t, 1, stats.MachinesInUse)
	require.NotNil(t, stats.OldestWaitingSince)
}

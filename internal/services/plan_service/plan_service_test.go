package planservice

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

func newService(t *testing.T) (*PlanService, *gorm.DB) {
	t.Helper()
	database := testutil.OpenTestDB(t)
	return New(database, zap.NewNop()), database
}

func TestCreatePlan(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t)

	plan, err := svc.Create(ctx, CreatePlanParams{
		UserID:   "u1",
		PlanID:   "mensal",
		PlanName: "Mensal",
		PlanType: models.PlanTypeIndividual,
		Days:     30,
	})
	require.NoError(t, err)
	assert.Equal(t, models.PlanStatusActive, plan.Status)
	assert.WithinDuration(t, time.Now().AddDate(0, 0, 30), plan.ExpiresAt, time.Minute)
}

func TestCreatePlanValidation(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t)

	_, err := svc.Create(ctx, CreatePlanParams{PlanID: "mensal", PlanName: "Mensal", PlanType: models.PlanTypeIndividual, Days: 30})
	assert.True(t, apperrors.IsKind(err, apperrors.KindValidation))

	_, err = svc.Create(ctx, CreatePlanParams{UserID: "u1", PlanID: "mensal", PlanName: "Mensal", PlanType: "gold", Days: 30})
	assert.True(t, apperrors.IsKind(err, apperrors.KindValidation))

	_, err = svc.Create(ctx, CreatePlanParams{UserID: "u1", PlanID: "mensal", PlanName: "Mensal", PlanType: models.PlanTypeIndividual, Days: 0})
	assert.True(t, apperrors.IsKind(err, apperrors.KindValidation))
}

func TestCancelPlan(t *testing.T) {
	ctx := context.Background()
	svc, database := newService(t)

	plan, err := svc.Create(ctx, CreatePlanParams{
		UserID: "u1", PlanID: "mensal", PlanName: "Mensal",
		PlanType: models.PlanTypeIndividual, Days: 30,
	})
	require.NoError(t, err)

	require.NoError(t, svc.Cancel(ctx, plan.ID, "chargeback"))

	var fresh models.UserPlan
	require.NoError(t, database.First(&fresh, plan.ID).Error)
	assert.Equal(t, models.PlanStatusCancelled, fresh.Status)
	require.NotNil(t, fresh.CancelReason)
	assert.Equal(t, "chargeback", *fresh.CancelReason)
	require.NotNil(t, fresh.CancelDate)

	// Cancelling twice is a conflict, and the record stays cancelled.
	err = svc.Cancel(ctx, plan.ID, "again")
	assert.True(t, apperrors.IsKind(err, apperrors.KindConflict))
}

func TestCancelUnknownPlan(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t)

	err := svc.Cancel(ctx, 42, "whatever")
	assert.True(t, apperrors.IsKind(err, apperrors.KindNotFound))
}

func TestListByUserNewestFirst(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t)

	first, err := svc.Create(ctx, CreatePlanParams{
		UserID: "u1", PlanID: "semanal", PlanName: "Semanal",
		PlanType: models.PlanTypeIndividual, Days: 7,
	})
	require.NoError(t, err)
	second, err := svc.Create(ctx, CreatePlanParams{
		UserID: "u1", PlanID: "mensal", PlanName: "Mensal",
		PlanType: models.PlanTypeQueueAuto, Days: 30,
	})
	require.NoError(t, err)

	plans, err := svc.ListByUser(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, plans, 2)
	assert.Equal(t, second.ID, plans[0].ID)
	assert.Equal(t, first.ID, plans[1].ID)
}

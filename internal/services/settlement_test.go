package services

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ecowatcher/backend/internal/events"
	"github.com/ecowatcher/backend/internal/lifecycle"
	"github.com/ecowatcher/backend/internal/models"
	"github.com/ecowatcher/backend/internal/utils"
)

// completed returns a Selesai pickup holding 2 x 100 and 1 x 50 points with
// a 50 point fee.
func (f *fixture) completed(t *testing.T) *models.Pickup {
	t.Helper()
	ctx := context.Background()
	p := f.submit(t)
	for _, s := range []lifecycle.Status{lifecycle.StatusDijemput, lifecycle.StatusDitimbang} {
		_, err := f.pickups.UpdateStatus(ctx, p.ID, s)
		require.NoError(t, err)
	}
	_, err := f.pickups.UpdateQuantity(ctx, p.ID, f.bottle.ID, 2)
	require.NoError(t, err)
	_, err = f.pickups.UpdateStatus(ctx, p.ID, lifecycle.StatusSelesai)
	require.NoError(t, err)
	p, err = f.pickups.Get(ctx, p.ID)
	require.NoError(t, err)
	return p
}

func TestSettle_CreditsItemsMinusFee(t *testing.T) {
	f := newFixture(t)
	p := f.completed(t)

	res, err := f.pickups.Settle(context.Background(), p.ID, f.owner())
	require.NoError(t, err)
	assert.Equal(t, 200, res.Total)
	assert.Equal(t, 200, res.Credited)
	assert.False(t, res.AlreadySettled)

	u := f.balance(t)
	assert.Equal(t, 200, u.Point)
	assert.Equal(t, 200, u.TotalPointMasuk)

	stored, err := f.pickups.Get(context.Background(), p.ID)
	require.NoError(t, err)
	assert.True(t, stored.PointsAdded)
	assert.Contains(t, f.events.types(), events.EventPointsSettled)
}

func TestSettle_SecondCallDoesNotCredit(t *testing.T) {
	f := newFixture(t)
	p := f.completed(t)
	ctx := context.Background()

	_, err := f.pickups.Settle(ctx, p.ID, f.owner())
	require.NoError(t, err)

	res, err := f.pickups.Settle(ctx, p.ID, f.owner())
	require.NoError(t, err)
	assert.True(t, res.AlreadySettled)
	assert.Zero(t, res.Credited)
	assert.Equal(t, 200, f.balance(t).Point)
}

func TestSettle_ConcurrentCallsCreditOnce(t *testing.T) {
	f := newFixture(t)
	p := f.completed(t)

	var wg sync.WaitGroup
	results := make([]*SettlementResult, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			res, err := f.pickups.Settle(context.Background(), p.ID, f.owner())
			assert.NoError(t, err)
			results[i] = res
		}(i)
	}
	wg.Wait()

	credited := 0
	for _, r := range results {
		if r != nil && !r.AlreadySettled {
			credited++
		}
	}
	assert.Equal(t, 1, credited)
	assert.Equal(t, 200, f.balance(t).Point)
}

func TestSettle_FeeAboveTotalFlagsWithoutCredit(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.completed(t)
	require.NoError(t, f.db.Model(&models.Pickup{}).Where("id = ?", p.ID).Update("pick_up_fee", 500).Error)

	res, err := f.pickups.Settle(ctx, p.ID, f.owner())
	require.NoError(t, err)
	assert.Equal(t, -250, res.Total)
	assert.Zero(t, res.Credited)
	assert.Zero(t, f.balance(t).Point)

	again, err := f.pickups.Settle(ctx, p.ID, f.owner())
	require.NoError(t, err)
	assert.True(t, again.AlreadySettled)
}

func TestSettle_Rejections(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	pending := f.submit(t)
	_, err := f.pickups.Settle(ctx, pending.ID, f.owner())
	assert.ErrorIs(t, err, ErrNotCompleted)

	done := f.completed(t)
	_, err = f.pickups.Settle(ctx, done.ID, utils.Claims{UserID: uuid.New(), Level: models.LevelPenyumbang})
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = f.pickups.Settle(ctx, uuid.New(), utils.Claims{Level: models.LevelAdmin})
	assert.ErrorIs(t, err, ErrNotFound)

	assert.Zero(t, f.balance(t).Point)
}

// The older client credits the balance and sets pointsAdded with two separate
// requests. If the second request is lost, a later settlement pays again.
// This test pins that behaviour of the two-step flow.
func TestLegacyTwoStepFlow_LostFlagWriteDoubleCredits(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.completed(t)

	total := lifecycle.SettlementTotal(p.SettlementLines(), p.PickUpFee)
	require.NoError(t, f.pickups.CreditForPickup(ctx, p.ID, f.owner(), total))
	// MarkPointsAdded never arrives.

	res, err := f.pickups.Settle(ctx, p.ID, f.owner())
	require.NoError(t, err)
	assert.False(t, res.AlreadySettled)
	assert.Equal(t, 400, f.balance(t).Point)
}

func TestMarkPointsAdded_BlocksLaterSettlement(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.completed(t)

	require.NoError(t, f.pickups.MarkPointsAdded(ctx, p.ID, f.owner()))
	require.NoError(t, f.pickups.MarkPointsAdded(ctx, p.ID, f.owner()))

	res, err := f.pickups.Settle(ctx, p.ID, f.owner())
	require.NoError(t, err)
	assert.True(t, res.AlreadySettled)

	assert.ErrorIs(t, f.pickups.MarkPointsAdded(ctx, uuid.New(), utils.Claims{Level: models.LevelAdmin}), ErrNotFound)
}

func TestMarkPointsAdded_RequiresCompletedOwnPickup(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	pending := f.submit(t)

	assert.ErrorIs(t, f.pickups.MarkPointsAdded(ctx, pending.ID, f.owner()), ErrNotCompleted)
	stored, err := f.pickups.Get(ctx, pending.ID)
	require.NoError(t, err)
	assert.False(t, stored.PointsAdded)

	p := f.completed(t)
	stranger := utils.Claims{UserID: uuid.New(), Level: models.LevelPenyumbang}
	assert.ErrorIs(t, f.pickups.MarkPointsAdded(ctx, p.ID, stranger), ErrForbidden)

	res, err := f.pickups.Settle(ctx, p.ID, f.owner())
	require.NoError(t, err)
	assert.Equal(t, 200, res.Credited)
}

func TestCreditForPickup(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	pending := f.submit(t)
	p := f.completed(t)
	total := lifecycle.SettlementTotal(p.SettlementLines(), p.PickUpFee)
	require.Equal(t, 200, total)

	assert.ErrorIs(t, f.pickups.CreditForPickup(ctx, p.ID, f.owner(), 0), ErrInvalidInput)
	assert.ErrorIs(t, f.pickups.CreditForPickup(ctx, p.ID, f.owner(), 1000000), ErrInvalidInput)
	assert.ErrorIs(t, f.pickups.CreditForPickup(ctx, pending.ID, f.owner(), total), ErrNotCompleted)
	assert.ErrorIs(t, f.pickups.CreditForPickup(ctx, uuid.New(), f.owner(), total), ErrNotFound)
	stranger := utils.Claims{UserID: uuid.New(), Level: models.LevelPenyumbang}
	assert.ErrorIs(t, f.pickups.CreditForPickup(ctx, p.ID, stranger, total), ErrForbidden)
	assert.Zero(t, f.balance(t).Point)

	require.NoError(t, f.pickups.CreditForPickup(ctx, p.ID, f.owner(), total))
	u := f.balance(t)
	assert.Equal(t, 200, u.Point)
	assert.Equal(t, 200, u.TotalPointMasuk)

	require.NoError(t, f.pickups.MarkPointsAdded(ctx, p.ID, f.owner()))
	assert.ErrorIs(t, f.pickups.CreditForPickup(ctx, p.ID, f.owner(), total), ErrAlreadySettled)
	assert.Equal(t, 200, f.balance(t).Point)
}

package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/ecowatcher/backend/internal/events"
	"github.com/ecowatcher/backend/internal/lifecycle"
	"github.com/ecowatcher/backend/internal/models"
	"github.com/ecowatcher/backend/internal/utils"
)

func TestSubmit_CopiesCatalogAndResolvesFee(t *testing.T) {
	f := newFixture(t)

	p := f.submit(t)

	assert.Equal(t, lifecycle.StatusPending, p.Status)
	assert.Equal(t, 1, p.QueueNumber)
	assert.Equal(t, 50, p.PickUpFee)
	assert.False(t, p.PointsAdded)
	assert.Equal(t, "Jl. Mawar 1, Coblong, Bandung", p.Address)
	assert.Equal(t, time.Date(2026, 10, 20, 0, 0, 0, 0, time.UTC), p.PickUpDate)
	require.Len(t, p.Items, 2)
	assert.Equal(t, "Botol PET", p.Items[0].Name)
	assert.Equal(t, "Plastik", p.Items[0].Type)
	assert.Equal(t, 100, p.Items[0].Points)

	second := f.submit(t)
	assert.Equal(t, 2, second.QueueNumber)

	assert.Equal(t, []string{events.EventPickupSubmitted, events.EventPickupSubmitted}, f.events.types())
}

func TestSubmit_DefaultFeeForUnknownKecamatan(t *testing.T) {
	f := newFixture(t)
	addr := models.Address{UserID: f.user.ID, Detail: "Jl. Melati", Kecamatan: "Sukajadi"}
	require.NoError(t, f.db.Create(&addr).Error)

	p, err := f.pickups.Submit(context.Background(), f.user.ID, SubmitInput{
		AddressID:  addr.ID,
		PickUpDate: time.Now(),
		Items:      []ItemInput{{ItemID: f.bottle.ID, Quantity: 1}},
	})
	require.NoError(t, err)
	assert.Equal(t, 10, p.PickUpFee)
	assert.Equal(t, []string{}, p.Photos)
}

func TestSubmit_Rejections(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.pickups.Submit(ctx, f.user.ID, SubmitInput{AddressID: f.address.ID, PickUpDate: time.Now()})
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = f.pickups.Submit(ctx, f.user.ID, SubmitInput{
		AddressID:  f.address.ID,
		PickUpDate: time.Now(),
		Items:      []ItemInput{{ItemID: uuid.New(), Quantity: 1}},
	})
	assert.ErrorIs(t, err, ErrNotFound)

	stranger := models.User{Nama: "Budi", Email: "budi@eco.id", Level: models.LevelPenyumbang, Status: models.UserAktif}
	require.NoError(t, f.db.Create(&stranger).Error)
	_, err = f.pickups.Submit(ctx, stranger.ID, SubmitInput{
		AddressID:  f.address.ID,
		PickUpDate: time.Now(),
		Items:      []ItemInput{{ItemID: f.bottle.ID, Quantity: 1}},
	})
	assert.ErrorIs(t, err, ErrNotFound)

	var count int64
	require.NoError(t, f.db.Model(&models.Pickup{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestUpdateStatus_FullPathCreatesTrackOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.submit(t)

	_, err := f.pickups.UpdateStatus(ctx, p.ID, lifecycle.StatusDijemput)
	require.NoError(t, err)

	track, err := f.pickups.GetTrack(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, p.QueueNumber, track.QueueNumber)
	assert.Empty(t, track.Statuses)

	_, err = f.pickups.UpdateStatus(ctx, p.ID, lifecycle.StatusDitimbang)
	require.NoError(t, err)
	got, err := f.pickups.UpdateStatus(ctx, p.ID, lifecycle.StatusSelesai)
	require.NoError(t, err)
	assert.Equal(t, lifecycle.StatusSelesai, got.Status)

	var tracks int64
	require.NoError(t, f.db.Model(&models.Track{}).Where("pickup_id = ?", p.ID).Count(&tracks).Error)
	assert.EqualValues(t, 1, tracks)
}

func TestUpdateStatus_ConcurrentPickupsOpenOneTrack(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.submit(t)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.pickups.UpdateStatus(ctx, p.ID, lifecycle.StatusDijemput)
		}(i)
	}
	wg.Wait()

	var ok, rejected int
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, ErrStaleStatus), errors.Is(err, lifecycle.ErrInvalidTransition):
			rejected++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, 1, rejected)

	var tracks int64
	require.NoError(t, f.db.Model(&models.Track{}).Where("pickup_id = ?", p.ID).Count(&tracks).Error)
	assert.EqualValues(t, 1, tracks)
}

func TestUpdateStatus_WriteBetweenReadAndUpdateIsStale(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.submit(t)

	// Another writer cancels the pickup after UpdateStatus has read Pending.
	var fired bool
	require.NoError(t, f.db.Callback().Update().Before("gorm:update").Register("test:interleave", func(tx *gorm.DB) {
		if fired || tx.Statement.Table != "penyetoran" {
			return
		}
		fired = true
		err := tx.Session(&gorm.Session{NewDB: true}).
			Exec("UPDATE penyetoran SET status = ? WHERE id = ?", lifecycle.StatusDibatalkan, p.ID).Error
		if err != nil {
			_ = tx.AddError(err)
		}
	}))

	_, err := f.pickups.UpdateStatus(ctx, p.ID, lifecycle.StatusDijemput)
	require.True(t, fired)
	assert.ErrorIs(t, err, ErrStaleStatus)

	var tracks int64
	require.NoError(t, f.db.Model(&models.Track{}).Where("pickup_id = ?", p.ID).Count(&tracks).Error)
	assert.Zero(t, tracks)
	assert.NotContains(t, f.events.types(), events.EventPickupStatusChanged)
}

func TestUpdateStatus_RejectedLeavesRecordUnchanged(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.submit(t)

	for _, to := range []lifecycle.Status{lifecycle.StatusDitimbang, lifecycle.StatusSelesai, lifecycle.StatusPending} {
		_, err := f.pickups.UpdateStatus(ctx, p.ID, to)
		assert.ErrorIs(t, err, lifecycle.ErrInvalidTransition, "Pending -> %s", to)
	}
	_, err := f.pickups.UpdateStatus(ctx, p.ID, lifecycle.Status("Hilang"))
	assert.ErrorIs(t, err, lifecycle.ErrUnknownStatus)

	stored, err := f.pickups.Get(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, lifecycle.StatusPending, stored.Status)
	assert.Nil(t, stored.Track)

	_, err = f.pickups.UpdateStatus(ctx, uuid.New(), lifecycle.StatusDijemput)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCancel(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	p := f.submit(t)
	stranger := utils.Claims{UserID: uuid.New(), Level: models.LevelPenyumbang}
	_, err := f.pickups.Cancel(ctx, p.ID, stranger)
	assert.ErrorIs(t, err, ErrForbidden)

	got, err := f.pickups.Cancel(ctx, p.ID, f.owner())
	require.NoError(t, err)
	assert.Equal(t, lifecycle.StatusDibatalkan, got.Status)

	_, err = f.pickups.UpdateStatus(ctx, p.ID, lifecycle.StatusDijemput)
	assert.ErrorIs(t, err, lifecycle.ErrInvalidTransition)

	moving := f.submit(t)
	_, err = f.pickups.UpdateStatus(ctx, moving.ID, lifecycle.StatusDijemput)
	require.NoError(t, err)
	_, err = f.pickups.Cancel(ctx, moving.ID, utils.Claims{Level: models.LevelAdmin})
	assert.ErrorIs(t, err, lifecycle.ErrInvalidTransition)
}

func TestUpdateQuantity_OnlyWhileDitimbang(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.submit(t)

	_, err := f.pickups.UpdateQuantity(ctx, p.ID, f.bottle.ID, 3)
	assert.ErrorIs(t, err, ErrNotEditable)

	_, err = f.pickups.UpdateStatus(ctx, p.ID, lifecycle.StatusDijemput)
	require.NoError(t, err)
	_, err = f.pickups.UpdateStatus(ctx, p.ID, lifecycle.StatusDitimbang)
	require.NoError(t, err)

	got, err := f.pickups.UpdateQuantity(ctx, p.ID, f.bottle.ID, 3)
	require.NoError(t, err)
	for _, it := range got.Items {
		if it.ItemID == f.bottle.ID {
			assert.Equal(t, 3, it.Quantity)
		} else {
			assert.Equal(t, 1, it.Quantity)
		}
	}

	_, err = f.pickups.UpdateQuantity(ctx, p.ID, uuid.New(), 1)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = f.pickups.UpdateQuantity(ctx, p.ID, f.bottle.ID, -1)
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = f.pickups.UpdateStatus(ctx, p.ID, lifecycle.StatusSelesai)
	require.NoError(t, err)
	_, err = f.pickups.UpdateQuantity(ctx, p.ID, f.bottle.ID, 9)
	assert.ErrorIs(t, err, ErrNotEditable)
}

func TestDelete_RemovesExactlyOnePickup(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	keep := f.submit(t)
	drop := f.submit(t)
	_, err := f.pickups.UpdateStatus(ctx, drop.ID, lifecycle.StatusDijemput)
	require.NoError(t, err)
	_, err = f.pickups.AppendTrack(ctx, drop.ID, lifecycle.TrackWillPickUp)
	require.NoError(t, err)

	require.NoError(t, f.pickups.Delete(ctx, drop.ID))

	list, total, err := f.pickups.List(ctx, ListFilter{})
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	require.Len(t, list, 1)
	assert.Equal(t, keep.ID, list[0].ID)

	_, err = f.pickups.GetTrack(ctx, drop.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	var orphans int64
	require.NoError(t, f.db.Model(&models.PickupItem{}).Where("pickup_id = ?", drop.ID).Count(&orphans).Error)
	assert.Zero(t, orphans)

	assert.ErrorIs(t, f.pickups.Delete(ctx, drop.ID), ErrNotFound)
}

func TestList_FiltersAndJoinsUser(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.submit(t)
	f.submit(t)
	_, err := f.pickups.UpdateStatus(ctx, a.ID, lifecycle.StatusDijemput)
	require.NoError(t, err)

	list, total, err := f.pickups.List(ctx, ListFilter{Status: lifecycle.StatusDijemput})
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	require.Len(t, list, 1)
	require.NotNil(t, list[0].User)
	assert.Equal(t, "Sari", list[0].User.Nama)

	other := uuid.New()
	_, total, err = f.pickups.List(ctx, ListFilter{UserID: &other})
	require.NoError(t, err)
	assert.Zero(t, total)
}

func TestStatus_FallsBackToDatabase(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.submit(t)

	snap, err := f.pickups.Status(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "Pending", snap.Status)

	_, err = f.pickups.Status(ctx, uuid.New())
	assert.ErrorIs(t, err, ErrNotFound)
}

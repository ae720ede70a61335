package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/ecowatcher/backend/internal/database"
	"github.com/ecowatcher/backend/internal/models"
	"github.com/ecowatcher/backend/internal/utils"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	conn, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := conn.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, database.Migrate(conn))
	return conn
}

type recordedEvent struct {
	Type    string
	Key     string
	Payload any
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []recordedEvent
}

func (p *recordingPublisher) Publish(_ context.Context, eventType, key string, payload any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, recordedEvent{Type: eventType, Key: key, Payload: payload})
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}

type fixture struct {
	db      *gorm.DB
	pickups *PickupService
	events  *recordingPublisher
	user    models.User
	address models.Address
	bottle  models.CatalogItem
	paper   models.CatalogItem
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := openTestDB(t)
	pub := &recordingPublisher{}

	f := &fixture{
		db:      db,
		events:  pub,
		pickups: NewPickupService(db, PickupDeps{Events: pub, DefaultFee: 10}),
		user: models.User{
			Nama: "Sari", Email: "sari@eco.id", Level: models.LevelPenyumbang, Status: models.UserAktif,
		},
		bottle: models.CatalogItem{Name: "Botol PET", Category: "Plastik", Points: 100, Unit: "kg"},
		paper:  models.CatalogItem{Name: "Kardus", Category: "Kertas", Points: 50, Unit: "kg"},
	}
	require.NoError(t, db.Create(&f.user).Error)
	f.address = models.Address{UserID: f.user.ID, Label: "Rumah", Detail: "Jl. Mawar 1", Kecamatan: "Coblong", Kota: "Bandung"}
	require.NoError(t, db.Create(&f.address).Error)
	require.NoError(t, db.Create(&f.bottle).Error)
	require.NoError(t, db.Create(&f.paper).Error)
	require.NoError(t, db.Create(&models.PickupFee{Kecamatan: "Coblong", Fee: 50}).Error)
	return f
}

func (f *fixture) submit(t *testing.T) *models.Pickup {
	t.Helper()
	p, err := f.pickups.Submit(context.Background(), f.user.ID, SubmitInput{
		AddressID:  f.address.ID,
		PickUpDate: time.Date(2026, 10, 20, 9, 30, 0, 0, time.UTC),
		PickUpTime: "09:30",
		Items: []ItemInput{
			{ItemID: f.bottle.ID, Quantity: 1},
			{ItemID: f.paper.ID, Quantity: 1},
		},
		Photos: []string{"https://cdn.eco.id/p/1.jpg"},
	})
	require.NoError(t, err)
	return p
}

func (f *fixture) balance(t *testing.T) models.User {
	t.Helper()
	var u models.User
	require.NoError(t, f.db.First(&u, "id = ?", f.user.ID).Error)
	return u
}

func (f *fixture) owner() utils.Claims {
	return utils.Claims{UserID: f.user.ID, Level: models.LevelPenyumbang}
}

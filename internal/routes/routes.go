package routes

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/ecowatcher/backend/internal/cache"
	"github.com/ecowatcher/backend/internal/config"
	"github.com/ecowatcher/backend/internal/events"
	"github.com/ecowatcher/backend/internal/handlers"
	"github.com/ecowatcher/backend/internal/middleware"
	"github.com/ecowatcher/backend/internal/models"
	"github.com/ecowatcher/backend/internal/services"
)

// Deps carries what the HTTP layer needs. Events, Cache, Notifier and Mailer
// may be nil; the services fall back to no-ops.
type Deps struct {
	DB       *gorm.DB
	Config   *config.Config
	Events   events.Publisher
	Cache    cache.StatusCache
	Notifier services.Notifier
	Mailer   services.AccountMailer
}

// NewApp builds the fiber application with middleware and all routes.
func NewApp(deps Deps) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:      "EcoWatcher Backend",
		ErrorHandler: handlers.ErrorHandler,
	})

	cfg := deps.Config
	origins := cfg.CORSOrigins
	if origins == "" {
		origins = "*"
	}

	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:  origins,
		AllowMethods:  "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders:  "Origin,Content-Type,Accept,Authorization,X-Request-ID",
		ExposeHeaders: "X-Request-ID",
		MaxAge:        24 * 60 * 60,
	}))
	app.Use(logger.New(logger.Config{
		Output: logrus.StandardLogger().Writer(),
		Format: "${locals:requestid} ${status} ${method} ${path} ${latency}\n",
	}))

	if cfg.RateLimitMax > 0 {
		app.Use(limiter.New(limiter.Config{
			Max:        cfg.RateLimitMax,
			Expiration: cfg.RateLimitWindow,
			KeyGenerator: func(c *fiber.Ctx) string {
				return c.IP()
			},
			LimitReached: func(c *fiber.Ctx) error {
				return fiber.NewError(fiber.StatusTooManyRequests, "too many requests")
			},
			Next: func(c *fiber.Ctx) bool {
				return c.Path() == "/healthz" || c.Method() == fiber.MethodOptions
			},
		}))
	}

	app.Get("/healthz", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"success": true, "data": fiber.Map{"status": "ok"}})
	})

	Register(app, deps)
	return app
}

// Register wires up all HTTP routes.
func Register(app *fiber.App, deps Deps) {
	cfg := deps.Config

	accounts := services.NewAccountService(deps.DB, cfg.JWTSecret, cfg.TokenExpires)
	if deps.Mailer != nil {
		accounts.SetMailer(deps.Mailer)
	}
	pickups := services.NewPickupService(deps.DB, services.PickupDeps{
		Events:     deps.Events,
		Cache:      deps.Cache,
		Notifier:   deps.Notifier,
		DefaultFee: cfg.DefaultPickupFee,
	})
	exchanges := services.NewExchangeService(deps.DB, deps.Events, deps.Notifier)

	authHandler := handlers.NewAuthHandler(accounts)
	userHandler := handlers.NewUserHandler(accounts)
	profileHandler := handlers.NewProfileHandler(deps.DB, accounts)
	pickupHandler := handlers.NewPickupHandler(pickups)
	pointHandler := handlers.NewPointHandler(pickups, accounts, exchanges)
	transactionHandler := handlers.NewTransactionHandler(exchanges)
	catalogHandler := handlers.NewCatalogHandler(deps.DB)
	campaignHandler := handlers.NewCampaignHandler(deps.DB)
	adminHandler := handlers.NewAdminHandler(deps.DB)

	admin := middleware.RequireLevel(models.LevelAdmin)
	staff := middleware.RequireLevel(models.LevelAdmin, models.LevelKurir)
	donor := middleware.RequireLevel(models.LevelPenyumbang)

	api := app.Group("/api")

	// Public routes
	api.Post("/auth/register", authHandler.Register)
	api.Post("/auth/login", authHandler.Login)
	api.Get("/katalog/getcatalog", catalogHandler.ListItems)

	// Protected routes
	protected := api.Group("", middleware.AuthMiddleware(cfg.JWTSecret))

	protected.Get("/auth/me", profileHandler.Me)
	protected.Put("/auth/me", profileHandler.UpdateProfile)

	pengguna := protected.Group("/pengguna", admin)
	pengguna.Get("/getuser", userHandler.ListUsers)
	pengguna.Post("/verifikasi", userHandler.Verify)
	pengguna.Post("/addkurir", userHandler.AddCourier)

	penyetoran := protected.Group("/penyetoran")
	penyetoran.Get("/penyetoran", staff, pickupHandler.ListPickups)
	penyetoran.Get("/detail", pickupHandler.Detail)
	penyetoran.Get("/status", pickupHandler.Status)
	penyetoran.Post("/submit", donor, pickupHandler.Submit)
	penyetoran.Get("/mine", donor, pickupHandler.ListMine)
	penyetoran.Put("/updatestatus", staff, pickupHandler.UpdateStatus)
	penyetoran.Put("/updatejumlah", staff, pickupHandler.UpdateQuantity)
	penyetoran.Put("/cancel", pickupHandler.Cancel)
	penyetoran.Delete("/delete", admin, pickupHandler.Delete)
	penyetoran.Put("/pointsadded", pickupHandler.MarkPointsAdded)

	point := protected.Group("/point")
	point.Get("/getunverified", admin, pointHandler.CountUnverified)
	point.Post("/settle", middleware.RequireLevel(models.LevelAdmin, models.LevelPenyumbang), pointHandler.Settle)
	point.Put("/tambah", donor, pointHandler.Credit)

	track := protected.Group("/track")
	track.Get("/gettrack", pickupHandler.GetTrack)
	track.Put("/track", staff, pickupHandler.AppendTrack)

	transaksi := protected.Group("/transaksi")
	transaksi.Get("/gettransaksi", admin, transactionHandler.List)
	transaksi.Get("/mine", donor, transactionHandler.ListMine)
	transaksi.Post("/tukar", donor, transactionHandler.Submit)
	transaksi.Put("/updatetransaksi", admin, transactionHandler.UpdateStatus)

	katalog := protected.Group("/katalog", admin)
	katalog.Post("/additem", catalogHandler.CreateItem)
	katalog.Put("/edititem", catalogHandler.UpdateItem)
	katalog.Delete("/deleteitem", catalogHandler.DeleteItem)

	protected.Get("/biaya", catalogHandler.ListFees)
	protected.Put("/biaya", admin, catalogHandler.UpsertFee)

	protected.Get("/campaigns", campaignHandler.ListCampaigns)
	protected.Post("/campaigns", campaignHandler.CreateCampaign)
	protected.Put("/campaigns/:id", campaignHandler.UpdateCampaign)
	protected.Delete("/campaigns/:id", campaignHandler.DeleteCampaign)

	alamat := protected.Group("/alamat", donor)
	alamat.Get("/", profileHandler.ListAddresses)
	alamat.Post("/", profileHandler.CreateAddress)
	alamat.Put("/:id", profileHandler.UpdateAddress)
	alamat.Delete("/:id", profileHandler.DeleteAddress)

	dashboard := protected.Group("/admin", admin)
	dashboard.Get("/stats", adminHandler.DashboardStats)
	dashboard.Get("/recent", adminHandler.RecentPickups)
}

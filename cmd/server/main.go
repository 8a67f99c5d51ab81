package main

import (
	"log"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"

	"github.com/recycleshare/recycleshare/internal/config"
	"github.com/recycleshare/recycleshare/internal/database"
	"github.com/recycleshare/recycleshare/internal/handler"
	"github.com/recycleshare/recycleshare/internal/lifecycle"
	"github.com/recycleshare/recycleshare/internal/middleware"
	"github.com/recycleshare/recycleshare/internal/queue"
	"github.com/recycleshare/recycleshare/internal/repository"
	"github.com/recycleshare/recycleshare/internal/router"
)

func main() {
	// A .env file is optional; in containers the variables come from
	// the orchestrator.
	if err := godotenv.Load(); err != nil {
		log.Printf("no .env file loaded: %v", err)
	}

	cfg := config.Load()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	// Repositories and the lifecycle engine.
	store := repository.NewStore(db)
	engine := lifecycle.New(store)
	users := repository.NewUserRepo(db)
	tokens := repository.NewTokenRepo(db)
	otps := repository.NewOTPRepo(db)
	types := repository.NewWasteTypeRepo(db)
	listings := repository.NewListingRepo(db)
	reservations := repository.NewReservationRepo(db)
	scores := repository.NewScoreRepo(db)
	audit := repository.NewAuditRepo(db)
	schema := repository.NewSchemaRepo(db)

	// Handlers.
	authH := handler.NewAuthHandler(cfg, users, tokens, otps)
	publicH := handler.NewPublicHandler(types, listings)
	listingH := handler.NewListingHandler(engine, listings)
	reservationH := handler.NewReservationHandler(engine, reservations, types)
	reportH := handler.NewReportHandler(scores)
	adminH := handler.NewAdminHandler(engine, types, users, tokens, scores, audit, schema)

	e := echo.New()
	e.HideBanner = true

	// Redis backs both the rate limiter and the public response cache.
	// The service degrades to uncached, unlimited operation when Redis
	// is unreachable.
	rdb := config.NewRedisClient()
	if rdb != nil {
		e.Use(middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb))
	} else {
		log.Println("redis unavailable, rate limiting and caching disabled")
	}
	var cacheMW echo.MiddlewareFunc
	if rdb != nil {
		cacheMW = middleware.NewRedisCache(config.LoadCacheConfig(), rdb)
	}

	router.RegisterRoutes(e)
	router.RegisterAuth(e, authH, cfg.JWTSecret)
	router.RegisterPublic(e, publicH, cacheMW)
	router.RegisterResident(e, listingH, reservationH, reportH, cfg.JWTSecret)
	router.RegisterAdmin(e, adminH, cfg.JWTSecret)

	// The consumer drains collection.completed events into a log file
	// and keeps reconnecting if the broker drops.
	go func() {
		if err := queue.StartCollectionConsumer(); err != nil {
			log.Printf("collection consumer stopped: %v", err)
		}
	}()

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)
	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}

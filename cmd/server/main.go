package main // Entry point package

import (
	"log"  // Logging library
	"time" // TTL conversions

	"github.com/joho/godotenv"    // .env loading for local development
	"github.com/labstack/echo/v4" // Echo web framework

	"github.com/iliyamo/event-auth/internal/config"
	"github.com/iliyamo/event-auth/internal/database"
	"github.com/iliyamo/event-auth/internal/handler"
	"github.com/iliyamo/event-auth/internal/mailprobe"
	"github.com/iliyamo/event-auth/internal/repository"
	"github.com/iliyamo/event-auth/internal/router"
	queue_publisher "github.com/iliyamo/event-auth/internal/service"
	"github.com/iliyamo/event-auth/internal/token"
)

func main() {
	_ = godotenv.Load() // .env is optional; real deployments set the environment directly
	cfg := config.Load()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	users := repository.NewUserRepo(db)
	tokens := token.New(
		repository.NewTokenRepo(db),
		cfg.AccessSecret, cfg.RefreshSecret,
		time.Duration(cfg.AccessTTLMin)*time.Minute,
		time.Duration(cfg.RefreshTTLDays)*24*time.Hour,
	)

	// The prober resolves each candidate domain's MX record; Redis caches
	// definitive verdicts.  A missing Redis just means probing directly.
	var prober mailprobe.Checker = mailprobe.New(cfg.ProbeHeloDomain, cfg.ProbeFrom, cfg.ProbeFallback, cfg.ProbeTimeout)
	if rdb := config.NewRedisClient(); rdb != nil {
		prober = mailprobe.NewCache(rdb, cfg.ProbeCacheTTL, prober)
	} else {
		log.Printf("redis unavailable, probe verdicts will not be cached")
	}

	h := handler.NewAuthHandler(cfg, users, tokens, prober, queue_publisher.New(cfg.AMQPURL))

	e := echo.New()
	router.RegisterRoutes(e, h, tokens)

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)
	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}

package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/redis/go-redis/v9"

	"carpool/internal/api"
	"carpool/internal/auth"
	"carpool/internal/geo"
	"carpool/internal/notify"
	"carpool/internal/payments"
	"carpool/internal/storage"
	"carpool/internal/trip"
)

func main() {
	addr := envOrDefault("HTTP_ADDR", ":8080")

	deps := initDeps()
	go deps.Hub.Run()

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(api.JSONLogger)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	api.AttachRoutes(r, deps)

	server := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}

	log.Printf("carpool API listening on %s", addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("server error: %v", err)
	}
}

func envOrDefault(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func initDeps() api.Deps {
	dbURL := os.Getenv("DATABASE_URL")
	redisURL := os.Getenv("REDIS_URL")
	amqpURL := os.Getenv("AMQP_URL")
	jwtSecret := os.Getenv("JWT_SECRET")
	jwtTTL := parseDuration(envOrDefault("JWT_TTL", "720h")) // default 30 days

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	deps := api.Deps{Hub: trip.NewHub()}

	var (
		persist trip.Persistence
		geoIdx  trip.GeoIndex = geo.NewInMemoryGeo()
		cache   geo.Cache     = geo.NewMemoryCache()
	)

	if dbURL != "" {
		pool, err := storage.DefaultPool(ctx, dbURL)
		if err != nil {
			log.Printf("database connection failed, falling back to in-memory: %v", err)
		} else if err := storage.ApplySchema(ctx, pool, envOrDefault("SCHEMA_PATH", "schema.sql")); err != nil {
			log.Printf("schema init failed, falling back to in-memory: %v", err)
		} else {
			log.Printf("using PostgreSQL persistence")
			pg := storage.NewPostgres(pool)
			persist = pg
			deps.Users = pg
			deps.Drivers = pg
			deps.Ratings = pg
			deps.Notes = pg
			deps.Admin = pg
			deps.Search = pg
		}
	}

	if redisURL != "" {
		opt, err := redis.ParseURL(redisURL)
		if err != nil {
			log.Printf("redis URL parse error, falling back to in-memory: %v", err)
		} else {
			client := redis.NewClient(opt)
			if err := client.Ping(ctx).Err(); err != nil {
				log.Printf("redis unreachable, falling back to in-memory: %v", err)
			} else {
				log.Printf("using Redis geo index and geocode cache")
				geoIdx = geo.NewIndex(client)
				cache = geo.NewRedisCache(client)
			}
		}
	}

	var broker notify.Broker
	if amqpURL != "" {
		b, err := notify.DialAMQP(amqpURL)
		if err != nil {
			log.Printf("amqp unreachable, notifications will not be published: %v", err)
		} else {
			log.Printf("publishing notifications to AMQP")
			broker = b
		}
	}
	var noteStore notify.Store
	if pg, ok := persist.(*storage.Postgres); ok {
		noteStore = pg
	}
	deps.Notifier = notify.New(noteStore, broker)

	if jwtSecret != "" {
		deps.Tokens = auth.NewManager(jwtSecret, jwtTTL)
	} else {
		log.Printf("JWT_SECRET unset, running without token auth")
	}

	if key := os.Getenv("MAPS_API_KEY"); key != "" {
		maps := geo.NewMapsClient(key, cache)
		if base := os.Getenv("MAPS_BASE_URL"); base != "" {
			maps = geo.NewMapsClientWithBase(key, base, cache)
		}
		deps.Maps = maps
	}

	if key := os.Getenv("PAYSTACK_SECRET_KEY"); key != "" {
		client := payments.NewClient(key)
		if base := os.Getenv("PAYSTACK_BASE_URL"); base != "" {
			client = payments.NewClientWithBase(key, base)
		}
		deps.Payments = client
	}

	deps.Store = trip.NewStoreWithDeps(persist, geoIdx)
	deps.GeoIndex = geoIdx
	return deps
}

func parseDuration(val string) time.Duration {
	d, err := time.ParseDuration(val)
	if err != nil {
		return 720 * time.Hour
	}
	return d
}

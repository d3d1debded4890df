package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/quebracell/backend/internal/cache"
	"github.com/quebracell/backend/internal/config"
	"github.com/quebracell/backend/internal/db"
	"github.com/quebracell/backend/internal/identity"
	"github.com/quebracell/backend/internal/kafka"
	"github.com/quebracell/backend/internal/lifecycle"
	"github.com/quebracell/backend/internal/listing"
	"github.com/quebracell/backend/internal/logger"
	"github.com/quebracell/backend/internal/photo"
	"github.com/quebracell/backend/internal/repository"
	"github.com/quebracell/backend/internal/repository/postgresql"
	"github.com/quebracell/backend/internal/server"
	"github.com/quebracell/backend/internal/store"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Config error: %v", err)
	}

	lg := logger.New()
	defer lg.Sync()

	var (
		listings  store.Store
		events    lifecycle.Events
		history   lifecycle.History
		auth      identity.Authenticator
		publisher *kafka.Publisher
	)

	if cfg.DatabaseConfigured() {
		database, err := db.NewDb(ctx, cfg)
		if err != nil {
			log.Fatalf("Database init error: %v", err)
		}
		db.InitAdmin(database, cfg)

		listingRepo := cache.NewListingCache(postgresql.NewListingRepo(database))
		if err := listingRepo.LoadInitialData(ctx); err != nil {
			log.Printf("WARN: could not prime listing cache: %v", err)
		}
		listings = store.NewPgStore(listingRepo)
		history = historyRecorder{repo: postgresql.NewHistoryRepo(database)}
		auth = postgresql.NewUserRepo(database)

		outboxRepo := postgresql.NewOutboxTaskRepo(database)
		events = kafka.NewOutboxEnqueuer(outboxRepo, cfg.KafkaTopic)

		var producer kafka.Producer
		if len(cfg.KafkaBrokers) > 0 {
			producer = kafka.NewWriterProducer(cfg.KafkaBrokers)
		} else {
			producer = kafka.NewConsoleProducer()
		}
		publisher = kafka.NewPublisher(outboxRepo, producer, kafka.PublisherConfig{
			PollInterval: 2 * time.Second,
			BatchSize:    20,
			MaxAttempts:  5,
		})
	} else {
		log.Println("No database configured, running on the in-memory store")
		listings = store.NewMemoryStore()
		auth = identity.NewDevAuthenticator()
	}

	resolver := identity.NewResolver(auth, cfg.AdminEmail)
	service := lifecycle.New(listings, events, history, lg)
	photos := photo.NewFSStorage(cfg.PhotoDir, cfg.PhotoBaseURL)

	srv := server.New(service, resolver, photos, cfg.PhotoDir, listings)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return srv.Run(gctx, cfg.HTTPPort)
	})

	if publisher != nil {
		g.Go(func() error {
			publisher.Run(gctx)
			return nil
		})
	}

	g.Go(func() error {
		<-gctx.Done()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		return srv.Shutdown(shutdownCtx)
	})

	log.Printf("Server started on port %s", cfg.HTTPPort)

	if err := g.Wait(); err != nil {
		log.Fatalf("Server error: %v", err)
	}

	log.Println("Server gracefully stopped")
}

// historyRecorder adapts the postgres history repository to the
// lifecycle History interface.
type historyRecorder struct {
	repo *postgresql.HistoryRepo
}

func (h historyRecorder) Record(ctx context.Context, listingID string, status listing.Status, actorID string, at time.Time) error {
	return h.repo.Create(ctx, &repository.StatusHistoryEntry{
		ListingID: listingID,
		Status:    string(status),
		ActorID:   actorID,
		ChangedAt: at,
	})
}

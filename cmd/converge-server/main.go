package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/converge-access/converge/server/internal/config"
	"github.com/converge-access/converge/server/internal/converge/capability"
	"github.com/converge-access/converge/server/internal/converge/policy"
	"github.com/converge-access/converge/server/internal/converge/service"
	"github.com/converge-access/converge/server/internal/converge/store"
	"github.com/converge-access/converge/server/internal/converge/store/memory"
	redisstore "github.com/converge-access/converge/server/internal/converge/store/redis"
	"github.com/converge-access/converge/server/internal/converge/store/sqlite"
	"github.com/converge-access/converge/server/internal/db"
	"github.com/converge-access/converge/server/internal/httpapi"
)

func main() {
	logger := log.New(os.Stdout, "converge-server ", log.LstdFlags|log.LUTC)

	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// SQLite: decision audit log, controllers, heartbeats.
	conn, err := db.Open(ctx, db.Config{Path: cfg.DB.Path, Env: cfg.Env})
	if err != nil {
		logger.Fatalf("open database: %v", err)
	}
	defer conn.Close()

	if cfg.IsDev() {
		if err := db.SeedDev(ctx, conn, db.SeedDevOptions{KnownControllers: cfg.KnownControllers}); err != nil {
			logger.Fatalf("seed dev data: %v", err)
		}
	}

	writer := db.NewWorker(conn)
	defer writer.Close()

	controllerStore := sqlite.NewControllerStore(conn, writer)
	heartbeatStore := sqlite.NewHeartbeatStore(conn, writer)
	eventStore := sqlite.NewDecisionEventStore(conn, writer)

	// Redis is optional; absent, the advisory projections live in
	// process memory only.
	var (
		lastAccess  store.LastAccessStore
		replayStore capability.ReplayStore
	)
	if cfg.Redis.Addr != "" {
		client := goredis.NewClient(&goredis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer client.Close()

		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		if err := client.Ping(pingCtx).Err(); err != nil {
			cancel()
			logger.Fatalf("redis ping: %v", err)
		}
		cancel()

		lastAccess = redisstore.NewLastAccessStore(client)
		if cfg.Replay.Enabled {
			replayStore = redisstore.NewReplayStore(client)
		}
		logger.Printf("redis connected at %s (replay enforcement %v)", cfg.Redis.Addr, cfg.Replay.Enabled)
	} else {
		lastAccess = memory.NewLastAccessStore()
		if cfg.Replay.Enabled {
			replayStore = memory.NewReplayStore()
		}
		logger.Printf("redis not configured, using in-memory projections")
	}

	// Signing keys: generated on first boot, reused after.
	public, private, generated, err := capability.LoadOrGenerateKeypair(cfg.Keys.Dir)
	if err != nil {
		logger.Fatalf("load signing keys: %v", err)
	}
	if generated {
		logger.Printf("generated new signing keypair under %s", cfg.Keys.Dir)
	}

	evaluator, err := policy.NewExpressionEvaluatorFromFile(cfg.Policy.ExpressionFile)
	if err != nil {
		logger.Fatalf("load policy document: %v", err)
	}

	verifier := capability.NewVerifier(capability.VerifierOptions{
		Key:    capability.NewVerifyKey(public),
		Replay: replayStore,
	})

	decisionSvc := service.NewDecisionService(service.DecisionServiceOptions{
		Verifier:      verifier,
		Evaluator:     evaluator,
		Events:        eventStore,
		LastAccess:    lastAccess,
		LastAccessTTL: cfg.Heartbeat.LastAccessTTL,
		Logger:        logger,
	})

	tokenSvc := service.NewTokenService(
		capability.NewIssuer(capability.NewSigner(private)),
		capability.NewVerifyKey(public),
	)

	registry := service.NewControllerRegistry(controllerStore)
	heartbeatSvc := service.NewHeartbeatService(heartbeatStore, registry)

	pruner := service.NewHeartbeatPruner(heartbeatStore, cfg.Heartbeat.Retention, cfg.Heartbeat.PruneInterval, logger)
	pruner.Start(ctx)
	defer pruner.Stop()

	srv := httpapi.NewServer(httpapi.Dependencies{
		Logger:           logger,
		Addr:             cfg.HTTPAddr,
		DecisionService:  decisionSvc,
		TokenService:     tokenSvc,
		HeartbeatService: heartbeatSvc,
	})

	go func() {
		logger.Printf("listening on %s (env=%s)", cfg.HTTPAddr, cfg.Env)
		if err := srv.Start(); err != nil {
			logger.Printf("server error: %v", err)
			stop()
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
}

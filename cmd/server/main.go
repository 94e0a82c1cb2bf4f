package main

import (
	"context"
	"log"
	"time"

	"github.com/redis/go-redis/v9"

	"realtime-canvas/internal/config"
	"realtime-canvas/internal/database"
	"realtime-canvas/internal/model"
	"realtime-canvas/internal/presence"
	"realtime-canvas/internal/server"
	"realtime-canvas/internal/store"
)

func main() {
	// 설정 로드
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("❌ Invalid configuration: %v", err)
	}

	// Redis (redis 백엔드 또는 presence 공유 시)
	var rdb *redis.Client
	if cfg.Store.Backend == config.BackendRedis || cfg.Redis.Presence {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer rdb.Close()

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := rdb.Ping(ctx).Err(); err != nil {
			log.Printf("⚠️ Redis ping failed: %v", err)
		} else {
			log.Printf("✅ Redis connected (%s)", cfg.Redis.Addr)
		}
		cancel()
	}

	// 영속 백엔드 선택
	var backend store.Backend
	switch cfg.Store.Backend {
	case config.BackendRedis:
		backend = store.NewRedisBackend(rdb, cfg.Store.RedisKey)
	case config.BackendPostgres:
		db, err := database.ConnectDB(cfg.Database)
		if err != nil {
			log.Fatalf("❌ Database connection failed: %v", err)
		}
		defer database.Close()

		if err := database.Ping(); err != nil {
			log.Fatalf("❌ Database ping failed: %v", err)
		}
		log.Printf("✅ Database connected successfully")
		backend = store.NewGormBackend(db, model.CanvasDocumentDrawings)
	default:
		fb, err := store.NewFileBackend(cfg.Store.DataFile)
		if err != nil {
			log.Fatalf("❌ Data file setup failed: %v", err)
		}
		backend = fb
	}

	bounds := store.Bounds{
		Retention:   cfg.Canvas.Retention,
		MaxBytes:    cfg.Canvas.MaxBytes,
		TargetBytes: cfg.Canvas.TargetBytes,
	}
	st := store.New(bounds, backend,
		store.WithFlushTimeout(cfg.Canvas.FlushTimeout),
		store.WithErrorHook(func(op string, err error) {
			log.Printf("⚠️ Store %s error: %v", op, err)
		}),
	)

	// 시작 시 정리 (만료/초과분 제거 후 필요하면 flush)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	drawings := st.Load(ctx)
	cancel()
	log.Printf("📦 Store ready: %d drawings (%s)", len(drawings), backend.Name())

	// 접속자 수
	var tracker presence.Tracker = presence.NewLocalTracker()
	if cfg.Redis.Presence && rdb != nil {
		tracker = presence.NewRedisTracker(rdb)
	}

	// 서버 생성 및 설정
	srv := server.New(cfg, st, tracker)
	srv.SetupMiddleware()
	srv.SetupRoutes()

	// 서버 시작
	if err := srv.Start(); err != nil {
		log.Fatalf("Server failed to start: %v", err)
	}
}

package server

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"realtime-canvas/internal/config"
	"realtime-canvas/internal/discovery"
	"realtime-canvas/internal/handler"
	"realtime-canvas/internal/presence"
	"realtime-canvas/internal/store"
)

// Server Fiber 서버 래퍼
type Server struct {
	app             *fiber.App
	cfg             *config.Config
	store           *store.Store
	presence        presence.Tracker
	hub             *handler.CanvasHub
	drawingsHandler *handler.DrawingsHandler
	healthHandler   *handler.HealthHandler
	janitor         *Janitor
}

// New 새 서버 인스턴스 생성
func New(cfg *config.Config, st *store.Store, tracker presence.Tracker) *Server {
	app := fiber.New(fiber.Config{
		AppName:               "Shared Canvas",
		ServerHeader:          "Fiber",
		StrictRouting:         true,
		CaseSensitive:         true,
		ReadTimeout:           cfg.Server.ReadTimeout,
		WriteTimeout:          cfg.Server.WriteTimeout,
		IdleTimeout:           cfg.Server.IdleTimeout,
		Prefork:               false, // WebSocket과 호환성 문제로 비활성화
		ReadBufferSize:        16384,
		WriteBufferSize:       16384,
		DisableStartupMessage: false,
	})

	if tracker == nil {
		tracker = presence.NewLocalTracker()
	}

	hub := handler.NewCanvasHub(st, tracker, cfg.WebSocket)

	// Redis presence 만 별도 헬스체크 대상
	var presencePinger handler.Pinger
	if p, ok := tracker.(handler.Pinger); ok {
		presencePinger = p
	}

	return &Server{
		app:             app,
		cfg:             cfg,
		store:           st,
		presence:        tracker,
		hub:             hub,
		drawingsHandler: handler.NewDrawingsHandler(st),
		healthHandler:   handler.NewHealthHandler(st, presencePinger, hub),
		janitor:         NewJanitor(st, hub, cfg.Canvas.CleanupInterval),
	}
}

// App Fiber 앱 (테스트용)
func (s *Server) App() *fiber.App {
	return s.app
}

// Hub 캔버스 허브
func (s *Server) Hub() *handler.CanvasHub {
	return s.hub
}

// SetupMiddleware 미들웨어 설정
func (s *Server) SetupMiddleware() {
	// 패닉 복구
	s.app.Use(recover.New(recover.Config{
		EnableStackTrace: true,
	}))

	// 로깅
	s.app.Use(logger.New(logger.Config{
		Format:     "${time} | ${status} | ${latency} | ${ip} | ${method} ${path}\n",
		TimeFormat: "2006-01-02 15:04:05",
		TimeZone:   "Asia/Seoul",
	}))

	// CORS
	s.app.Use(cors.New(cors.Config{
		AllowOrigins: s.cfg.CORS.AllowOrigins,
		AllowHeaders: s.cfg.CORS.AllowHeaders,
		AllowMethods: "GET, OPTIONS",
	}))
}

// SetupRoutes 라우트 설정
func (s *Server) SetupRoutes() {
	// 헬스체크 엔드포인트
	s.app.Get("/health", s.healthHandler.Check)
	s.app.Get("/health/live", s.healthHandler.Liveness)
	s.app.Get("/health/ready", s.healthHandler.Readiness)

	// 드로잉 조회
	s.app.Get("/api/drawings", s.drawingsHandler.GetDrawings)

	// WebSocket 업그레이드 체크 미들웨어
	s.app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			c.Locals("allowed", true)
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})

	// 캔버스 실시간 채널
	s.app.Get("/ws/canvas", websocket.New(s.hub.HandleWebSocket, websocket.Config{
		ReadBufferSize:  s.cfg.WebSocket.ReadBufferSize,
		WriteBufferSize: s.cfg.WebSocket.WriteBufferSize,
	}))

	// 웹 클라이언트 정적 파일 (설정된 경우만)
	if s.cfg.Server.PublicDir != "" {
		s.app.Static("/", s.cfg.Server.PublicDir)
	}
}

// Start 서버 시작 (SIGINT/SIGTERM 시 graceful shutdown)
func (s *Server) Start() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return s.Run(ctx)
}

// Run ctx 가 끝날 때까지 서버와 백그라운드 작업 실행
func (s *Server) Run(ctx context.Context) error {
	bgCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	go s.janitor.Run(bgCtx)

	if r, ok := s.presence.(interface{ Run(context.Context) }); ok {
		go r.Run(bgCtx)
	}

	if s.cfg.MDNS.Enabled {
		if port, err := discovery.PortOf(s.cfg.Server.Port); err != nil {
			log.Printf("⚠️ mDNS disabled: %v", err)
		} else if adv, err := discovery.Advertise(s.cfg.MDNS.Instance, port); err != nil {
			log.Printf("⚠️ mDNS advertisement failed: %v", err)
		} else {
			log.Printf("📡 mDNS: advertising %s on port %d", discovery.ServiceType, port)
			defer adv.Shutdown()
		}
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("🚀 Shared Canvas starting on %s", s.cfg.Server.Port)
		log.Printf("📡 WebSocket endpoint: ws://localhost%s/ws/canvas", s.cfg.Server.Port)
		errCh <- s.app.Listen(s.cfg.Server.Port)
	}()

	select {
	case err := <-errCh:
		cancel()
		if cerr := s.closeStore(); cerr != nil {
			log.Printf("⚠️ Store close: %v", cerr)
		}
		return err
	case <-ctx.Done():
	}

	log.Println("🛑 Shutting down server...")
	return s.Shutdown()
}

// Shutdown HTTP 서버 종료 후 세션을 닫고 남은 flush 를 기다린다
func (s *Server) Shutdown() error {
	err := s.app.ShutdownWithTimeout(s.cfg.Server.ShutdownTimeout)
	s.hub.Shutdown()

	if cerr := s.closeStore(); cerr != nil {
		err = errors.Join(err, cerr)
	}
	return err
}

func (s *Server) closeStore() error {
	timeout := s.cfg.Server.ShutdownTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return s.store.Close(ctx)
}

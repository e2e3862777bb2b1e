package api

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"gatepass/internal/cache"
	"gatepass/internal/config"
	"gatepass/internal/database"
	"gatepass/internal/handlers"
	"gatepass/internal/integrity"
	"gatepass/internal/mailer"
	"gatepass/internal/messaging"
	"gatepass/internal/middleware"
	"gatepass/internal/repository"
	"gatepass/internal/service"
	"gatepass/internal/ticket"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Server представляет HTTP сервер API
type Server struct {
	router   *gin.Engine
	config   *config.Config
	db       *database.DB
	nats     *messaging.NATSClient
	valkey   *cache.ValkeyClient
	queue    *mailer.Queue
	services *service.Services
	repos    *repository.Repositories
}

// NewServer создает новый экземпляр сервера
func NewServer(cfg *config.Config) *Server {
	// Устанавливаем режим Gin
	gin.SetMode(cfg.GinMode)

	// Подключаемся к базе данных
	db, err := database.Connect(cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	// Запускаем миграции
	if err := db.RunMigrations(); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	// Подключаемся к NATS
	natsClient, err := messaging.NewNATSClient(cfg.NATS)
	if err != nil {
		log.Fatalf("Failed to connect to NATS: %v", err)
	}

	// Кеш опционален: без него работает fallback на БД
	valkeyClient, err := cache.NewValkeyClient()
	if err != nil {
		log.Printf("Valkey unavailable, resend guard falls back to database: %v", err)
		valkeyClient = nil
	}

	// Создаем репозитории
	repos := repository.NewRepositories(db)

	// Кодек и генератор номеров билетов
	codec := ticket.NewCodec(cfg.Event.Code)
	generator := ticket.NewGenerator(repos.Registrations, cfg.Event.Code)

	// Очередь доставки email
	queueCfg := mailer.DefaultQueueConfig()
	queueCfg.SendDelay = cfg.SMTP.SendDelay
	queueCfg.SendTimeout = cfg.SMTP.SendTimeout
	queueCfg.MaxAttempts = cfg.SMTP.MaxAttempts
	queue := mailer.NewQueue(queueCfg)
	queue.Start()

	sender := mailer.NewSMTPSender(cfg.SMTP)

	var guard service.ResendGuard
	if valkeyClient != nil {
		guard = valkeyClient
	}

	// Создаем сервисы
	services := service.NewServices(repos, natsClient, generator, codec, sender, queue, guard, service.Options{
		EventTitle:     cfg.Event.Title,
		MultiDay:       cfg.Event.MultiDay,
		ResendCooldown: cfg.ResendCooldown,
	})

	// Создаем роутер
	router := gin.New()

	// Применяем middleware
	router.Use(middleware.Recovery())
	router.Use(middleware.CORS())
	router.Use(middleware.Logger())
	router.Use(middleware.Metrics())

	// Создаем сервер
	server := &Server{
		router:   router,
		config:   cfg,
		db:       db,
		nats:     natsClient,
		valkey:   valkeyClient,
		queue:    queue,
		services: services,
		repos:    repos,
	}

	// Настраиваем роуты
	server.setupRoutes()

	return server
}

// setupRoutes настраивает все API роуты
func (s *Server) setupRoutes() {
	validator := integrity.NewValidator(integrity.NewPostgresStore(s.db.DB))
	h := handlers.NewHandlers(s.services, validator)

	// API routes
	api := s.router.Group("/api")
	{
		// Scanner endpoints
		scan := api.Group("/scan")
		{
			scan.POST("/verify", h.VerifyScan)
			scan.POST("/confirm", h.ConfirmEntry)
		}

		// Registration ticket endpoints
		registrations := api.Group("/registrations")
		{
			registrations.POST("/:id/issue", h.IssueTicket)
			registrations.POST("/:id/resend", h.ResendTicket)
		}

		// Payments endpoints
		payments := api.Group("/payments")
		{
			payments.POST("/notifications", h.OnPaymentUpdates)
		}

		// Integrity endpoints
		api.GET("/integrity/report", h.IntegrityReport)
	}

	// Health check endpoint
	s.router.GET("/health", s.healthCheck)

	// Prometheus metrics endpoint
	s.router.GET("/metrics", gin.WrapH(promhttp.Handler()))
}

// healthCheck обрабатывает health check запросы
func (s *Server) healthCheck(c *gin.Context) {
	dbHealth := s.db.HealthCheck(c.Request.Context())

	status := http.StatusOK
	if dbHealth.Status != "healthy" {
		status = http.StatusServiceUnavailable
	}

	c.JSON(status, gin.H{
		"status":   dbHealth.Status,
		"service":  "gatepass-api",
		"version":  "1.0.0",
		"database": dbHealth,
	})
}

// Run запускает HTTP сервер
func (s *Server) Run() error {
	addr := fmt.Sprintf(":%s", s.config.Port)
	return s.router.Run(addr)
}

// GetRouter возвращает роутер для тестирования
func (s *Server) GetRouter() *gin.Engine {
	return s.router
}

// Cleanup закрывает соединения
func (s *Server) Cleanup() error {
	// Даем воркеру очереди завершить текущую отправку
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.queue.Shutdown(ctx); err != nil {
		log.Printf("Error shutting down email queue: %v", err)
	}

	if s.nats != nil {
		if err := s.nats.Close(); err != nil {
			log.Printf("Error closing NATS connection: %v", err)
		}
	}

	if s.valkey != nil {
		if err := s.valkey.Close(); err != nil {
			log.Printf("Error closing Valkey connection: %v", err)
		}
	}

	if s.db != nil {
		if err := s.db.Close(); err != nil {
			log.Printf("Error closing database connection: %v", err)
			return err
		}
	}

	return nil
}

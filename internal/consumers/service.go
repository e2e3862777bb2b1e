package consumers

import (
	"context"
	"log/slog"

	"gatepass/internal/config"
	"gatepass/internal/database"
	"gatepass/internal/mailer"
	"gatepass/internal/messaging"
	"gatepass/internal/repository"
	"gatepass/internal/service"
	"gatepass/internal/ticket"
)

// ConsumerService drives ticket issuance off the message bus. It runs
// as its own binary so slow SMTP delivery never sits on an HTTP
// request path.
type ConsumerService struct {
	db       *database.DB
	nats     *messaging.NATSClient
	queue    *mailer.Queue
	repos    *repository.Repositories
	handlers *Handlers
}

func NewConsumerService(cfg *config.Config) (*ConsumerService, error) {
	// Connect to database
	db, err := database.Connect(cfg.Database)
	if err != nil {
		return nil, err
	}

	// Connect to NATS
	natsClient, err := messaging.NewNATSClient(cfg.NATS)
	if err != nil {
		return nil, err
	}

	// Create repositories
	repos := repository.NewRepositories(db)

	// Issuance stack: number generator, QR codec, delivery queue
	codec := ticket.NewCodec(cfg.Event.Code)
	generator := ticket.NewGenerator(repos.Registrations, cfg.Event.Code)

	queueCfg := mailer.DefaultQueueConfig()
	queueCfg.SendDelay = cfg.SMTP.SendDelay
	queueCfg.SendTimeout = cfg.SMTP.SendTimeout
	queueCfg.MaxAttempts = cfg.SMTP.MaxAttempts
	queue := mailer.NewQueue(queueCfg)
	queue.Start()

	sender := mailer.NewSMTPSender(cfg.SMTP)

	tickets := service.NewTicketService(repos.Registrations, repos.Members, generator, codec, sender, queue, natsClient, nil, service.Options{
		EventTitle:     cfg.Event.Title,
		MultiDay:       cfg.Event.MultiDay,
		ResendCooldown: cfg.ResendCooldown,
	})

	handlers := NewHandlers(tickets)

	return &ConsumerService{
		db:       db,
		nats:     natsClient,
		queue:    queue,
		repos:    repos,
		handlers: handlers,
	}, nil
}

func (cs *ConsumerService) Start() error {
	slog.Info("Starting NATS consumers...")

	// Queue group keeps issuance single-flight across replicas
	_, err := cs.nats.SubscribeQueue("payment.completed", "consumers", cs.handlers.HandlePaymentCompleted)
	if err != nil {
		return err
	}

	slog.Info("All consumers started successfully")
	return nil
}

func (cs *ConsumerService) Shutdown(ctx context.Context) error {
	slog.Info("Shutting down consumer service...")

	if cs.queue != nil {
		if err := cs.queue.Shutdown(ctx); err != nil {
			slog.Error("Error shutting down email queue", "error", err)
		}
	}

	if cs.nats != nil {
		if err := cs.nats.Close(); err != nil {
			slog.Error("Error closing NATS connection", "error", err)
		}
	}

	if cs.db != nil {
		if err := cs.db.Close(); err != nil {
			slog.Error("Error closing database connection", "error", err)
			return err
		}
	}

	return nil
}

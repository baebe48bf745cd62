// Package app is the composition root: it loads configuration, opens the
// local store, migrates it, and wires repositories, the remote API client,
// the realtime channel, and the sync services together.
package app

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/akvo/agriconnect-sub001/internal/application/messagesync"
	"github.com/akvo/agriconnect-sub001/internal/application/session"
	"github.com/akvo/agriconnect-sub001/internal/application/ticketsync"
	"github.com/akvo/agriconnect-sub001/internal/domain/customer"
	"github.com/akvo/agriconnect-sub001/internal/domain/shared/events"
	"github.com/akvo/agriconnect-sub001/internal/domain/synclog"
	"github.com/akvo/agriconnect-sub001/internal/domain/ticket"
	"github.com/akvo/agriconnect-sub001/internal/domain/user"
	"github.com/akvo/agriconnect-sub001/internal/infrastructure/api"
	"github.com/akvo/agriconnect-sub001/internal/infrastructure/config"
	"github.com/akvo/agriconnect-sub001/internal/infrastructure/database"
	"github.com/akvo/agriconnect-sub001/internal/infrastructure/migration"
	"github.com/akvo/agriconnect-sub001/internal/infrastructure/realtime"
	"github.com/akvo/agriconnect-sub001/internal/infrastructure/repository"
	"github.com/akvo/agriconnect-sub001/internal/shared/db"
	"github.com/akvo/agriconnect-sub001/internal/shared/logger"
)

// App carries the fully wired object graph.
type App struct {
	Config *config.Config
	Log    logger.Interface
	DB     *gorm.DB

	Tickets   ticket.Repository
	Customers customer.Repository
	Users     user.Repository
	Profiles  user.ProfileRepository
	SyncLogs  synclog.Repository

	API        *api.Client
	Refresher  *api.Refresher
	Dispatcher *events.InMemoryDispatcher
	Realtime   *realtime.Client
	Migrator   *migration.Manager

	TicketSync  *ticketsync.Service
	MessageSync *messagesync.Service
	Session     *session.Service
}

// Build wires the application for the given environment. Schema migration
// runs as part of startup so every entry point sees a current store.
func Build(env string) (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if err := logger.Init(&cfg.Logger); err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	log := logger.NewLogger()

	if err := database.Init(&cfg.Database); err != nil {
		return nil, fmt.Errorf("failed to open local store: %w", err)
	}
	gdb := database.Get()

	migrator := migration.NewManager(env)
	if err := migrator.Migrate(gdb); err != nil {
		return nil, fmt.Errorf("failed to migrate local store: %w", err)
	}

	txManager := db.NewTransactionManager(gdb)

	tickets := repository.NewTicketRepository(gdb, log)
	messages := repository.NewMessageRepository(gdb, log)
	customers := repository.NewCustomerRepository(gdb, log)
	users := repository.NewUserRepository(gdb, log)
	profiles := repository.NewProfileRepository(gdb, log)
	syncLogs := repository.NewSyncLogRepository(gdb, log)

	apiClient := api.NewClient(&cfg.API, log)
	refresher := api.NewRefresher(apiClient, profiles, log)
	apiClient.SetCredentialSource(refresher)

	dispatcher := events.NewInMemoryDispatcher()
	bridge := realtime.NewBridge(tickets, messages, customers, users, txManager, dispatcher, log)
	channel := realtime.NewClient(&cfg.Realtime, refresher, dispatcher, bridge, log)

	apiClient.SetUnauthorizedHandler(func() {
		log.Warnw("session credential rejected by remote service")
	})

	return &App{
		Config:     cfg,
		Log:        log,
		DB:         gdb,
		Tickets:    tickets,
		Customers:  customers,
		Users:      users,
		Profiles:   profiles,
		SyncLogs:   syncLogs,
		API:        apiClient,
		Refresher:  refresher,
		Dispatcher: dispatcher,
		Realtime:   channel,
		Migrator:   migrator,
		TicketSync: ticketsync.NewService(
			tickets, customers, users, syncLogs, apiClient, txManager, cfg.Sync.TicketPageSize, log),
		MessageSync: messagesync.NewService(
			tickets, messages, users, syncLogs, apiClient, txManager, cfg.Sync.MessagePageSize, log),
		Session: session.NewService(users, profiles, apiClient, gdb, migrator, log),
	}, nil
}

// Close releases the local store.
func (a *App) Close() error {
	a.Realtime.Disconnect()
	return database.Close()
}

package main

import (
	"fmt"

	"tasksync/integration"
	"tasksync/internal/config"
	"tasksync/internal/credentials"
	"tasksync/internal/utils"
	"tasksync/store"
	"tasksync/syncjob"
)

// App bundles the wiring shared by the CLI commands: config, database,
// integration client, and the sync job controller.
type App struct {
	config     *config.Config
	db         *store.Database
	source     integration.Source
	client     *integration.Client // concrete client, for connection management
	tasks      *store.TaskStore
	jobs       *store.SyncJobStore
	controller *syncjob.Controller
}

// NewApp loads configuration, opens the database, and builds the
// integration client with credentials resolved from keyring/env/config.
func NewApp() (*App, error) {
	cfg := config.GetConfig()

	db, err := store.InitDatabase(cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	catalog, err := loadCatalog(cfg)
	if err != nil {
		db.Close()
		return nil, err
	}

	resolver := credentials.NewResolver()
	token, err := resolver.Resolve(credentials.IntegrationToken, cfg.Integration.APIToken)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("integration API token: %w", err)
	}

	// The webhook secret may live in the keyring instead of the config file
	if secret := resolver.ResolveOptional(credentials.WebhookSecret, cfg.Webhook.Secret); secret.Value != "" {
		cfg.Webhook.Secret = secret.Value
	}

	client := integration.NewClient(cfg.Integration.BaseURL, token.Value, catalog)
	var source integration.Source = client
	tasks := store.NewTaskStore(db)
	jobs := store.NewSyncJobStore(db)

	controller, err := syncjob.NewController(source, tasks, jobs,
		syncjob.WithMaxPages(cfg.Sync.MaxPages),
		syncjob.WithJobTimeout(cfg.Sync.JobTimeout()),
		syncjob.WithLogger(utils.NewComponentLogger("syncjob")),
	)
	if err != nil {
		db.Close()
		return nil, err
	}

	return &App{
		config:     cfg,
		db:         db,
		source:     source,
		client:     client,
		tasks:      tasks,
		jobs:       jobs,
		controller: controller,
	}, nil
}

// Close releases the database handle
func (a *App) Close() error {
	return a.db.Close()
}

func loadCatalog(cfg *config.Config) (*integration.Catalog, error) {
	if cfg.Integration.CatalogPath != "" {
		catalog, err := integration.LoadCatalog(cfg.Integration.CatalogPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load integration catalog: %w", err)
		}
		return catalog, nil
	}
	return integration.DefaultCatalog(), nil
}

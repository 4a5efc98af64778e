package bootstrap

import (
	"context"
	"errors"
	"fmt"

	"github.com/firebase/genkit/go/genkit"
	"github.com/va6996/tokenagent/agents"
	"github.com/va6996/tokenagent/chat"
	"github.com/va6996/tokenagent/config"
	"github.com/va6996/tokenagent/log"
	"github.com/va6996/tokenagent/orm"
	"github.com/va6996/tokenagent/plugins/asi1"
	"github.com/va6996/tokenagent/plugins/ledger"
	"github.com/va6996/tokenagent/tools"
	"github.com/va6996/tokenagent/transport"
	"gorm.io/gorm"
)

// App holds the initialized components of the application
type App struct {
	Config     *config.Config
	Genkit     *genkit.Genkit
	Registry   *tools.Registry
	Ledger     *ledger.Client
	LLM        *asi1.Client
	TokenAgent *agents.TokenAgent

	// Set by Setup only
	Handler *chat.Handler
	Sender  *transport.HTTPSender
	Server  *transport.Server
	DB      *gorm.DB

	redis *transport.RedisResolver
}

// SetupAgent initializes the model client, the ledger tools and the agent
func SetupAgent(ctx context.Context, cfg *config.Config) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	// 1. Genkit holds the tool definitions and their schemas
	gk := genkit.Init(ctx)

	// 2. Init Tools Registry. Initializing the ledger client registers its tools.
	registry := tools.NewRegistry()
	ledgerClient := ledger.NewClient(cfg.Ledger, gk, registry)
	log.Infof(ctx, "Registered ledger tools: %v", registry.Names())

	// 3. Model client and agent
	log.Infof(ctx, "Using ASI1 model %s at %s", cfg.LLM.Model, cfg.LLM.BaseURL)
	llm := asi1.NewClient(cfg.LLM)

	return &App{
		Config:     cfg,
		Genkit:     gk,
		Registry:   registry,
		Ledger:     ledgerClient,
		LLM:        llm,
		TokenAgent: agents.NewTokenAgent(llm, registry),
	}, nil
}

// Setup initializes the full server: agent, exchange log, peer resolution
// and the HTTP transport.
func Setup(ctx context.Context, cfg *config.Config) (*App, error) {
	app, err := SetupAgent(ctx, cfg)
	if err != nil {
		return nil, err
	}

	// Exchange log
	var recorder chat.Recorder
	if cfg.Storage.Driver != "" {
		db, err := orm.Open(cfg.Storage.Driver, cfg.Storage.DSN)
		if err != nil {
			return nil, fmt.Errorf("failed to open exchange log: %w", err)
		}
		app.DB = db
		recorder = orm.NewExchangeStore(db)
		log.Infof(ctx, "Recording exchanges with %s", cfg.Storage.Driver)
	}

	// Peer resolution: static peers first, then Redis
	resolvers := transport.ChainResolver{transport.StaticResolver(cfg.Agent.Peers)}
	if cfg.Resolver.Addr != "" {
		rr, err := transport.NewRedisResolver(ctx, cfg.Resolver)
		if err != nil {
			app.Close()
			return nil, err
		}
		app.redis = rr
		resolvers = append(resolvers, rr)

		if cfg.Agent.Address != "" && cfg.Agent.Endpoint != "" {
			if err := rr.Register(ctx, cfg.Agent.Address, cfg.Agent.Endpoint); err != nil {
				log.Warnf(ctx, "Failed to publish endpoint: %v", err)
			}
		}
	}

	if cfg.Agent.Address == "" {
		log.Warn(ctx, "AGENT_ADDRESS is empty, envelopes for any target will be accepted")
	}

	app.Sender = transport.NewHTTPSender(cfg.Agent.Address, resolvers, cfg.Agent.SendTimeoutDuration())
	app.Handler = chat.NewHandler(app.TokenAgent, app.Sender, recorder)
	app.Server = transport.NewServer(cfg.Agent.Port, cfg.Agent.Address, app.Handler, app.TokenAgent)

	return app, nil
}

// Close releases the database and Redis connections
func (a *App) Close() error {
	var errs []error
	if a.redis != nil {
		if a.Config.Agent.Address != "" && a.Config.Agent.Endpoint != "" {
			if err := a.redis.Unregister(context.Background(), a.Config.Agent.Address); err != nil {
				errs = append(errs, err)
			}
		}
		errs = append(errs, a.redis.Close())
	}
	if a.DB != nil {
		if sqlDB, err := a.DB.DB(); err == nil {
			errs = append(errs, sqlDB.Close())
		}
	}
	return errors.Join(errs...)
}

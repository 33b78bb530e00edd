package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/felixgeelhaar/agentstep/application"
	"github.com/felixgeelhaar/agentstep/domain/agent"
	"github.com/felixgeelhaar/agentstep/domain/config"
	"github.com/felixgeelhaar/agentstep/domain/session"
	configloader "github.com/felixgeelhaar/agentstep/infrastructure/config"
	"github.com/felixgeelhaar/agentstep/infrastructure/logging"
	"github.com/felixgeelhaar/agentstep/infrastructure/provider"
	"github.com/felixgeelhaar/agentstep/infrastructure/resilience"
	"github.com/felixgeelhaar/agentstep/infrastructure/storage/memory"
	"github.com/felixgeelhaar/agentstep/infrastructure/storage/postgres"
	"github.com/felixgeelhaar/agentstep/infrastructure/storage/redis"
	"github.com/felixgeelhaar/agentstep/infrastructure/storage/sqlite"
	"github.com/felixgeelhaar/agentstep/infrastructure/telemetry"
	"github.com/felixgeelhaar/agentstep/pack/posts"
)

// runtime holds everything a command needs to talk to the agent.
type runtime struct {
	config       *config.AgentConfig
	registry     *memory.ToolRegistry
	conversation *application.Conversation
	closers      []func(context.Context) error
}

// Close releases storage connections and flushes spans.
func (r *runtime) Close(ctx context.Context) error {
	var errs []error
	for i := len(r.closers) - 1; i >= 0; i-- {
		if err := r.closers[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// runtimeOverrides are command-line values that win over the config file.
type runtimeOverrides struct {
	providerID string
	modelID    string
	maxRetries int
	trace      bool
}

// loadConfig reads path, or returns the defaults when path is empty.
func loadConfig(path string) (*config.AgentConfig, error) {
	if path == "" {
		return config.Default(), nil
	}
	cfg, err := configloader.NewLoader().LoadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return cfg, nil
}

// buildRegistry installs the posts pack filtered by the tools section.
func buildRegistry(cfg *config.AgentConfig) *memory.ToolRegistry {
	p := posts.New(posts.PackConfig{Capabilities: cfg.Tools.Capabilities})
	return memory.NewToolRegistryFrom(p.Tools, memory.Filter{
		Enabled:  cfg.Tools.Enabled,
		Disabled: cfg.Tools.Disabled,
	})
}

// buildRuntime wires the configured provider, storage and telemetry.
func (a *App) buildRuntime(ctx context.Context, cfg *config.AgentConfig, o runtimeOverrides) (*runtime, error) {
	logging.Replace(logging.New(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: a.stderr,
	}))

	rt := &runtime{config: cfg, registry: buildRegistry(cfg)}

	if cfg.Telemetry.Tracing || o.trace {
		shutdown, err := telemetry.SetupTracing(telemetry.TracingConfig{
			ServiceName:    "agentstep",
			ServiceVersion: Version,
			Output:         a.stderr,
			SampleRate:     cfg.Telemetry.SampleRate,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to set up tracing: %w", err)
		}
		rt.closers = append(rt.closers, shutdown)
	}

	store, locker, err := buildStorage(ctx, cfg.Storage, rt)
	if err != nil {
		_ = rt.Close(ctx)
		return nil, err
	}

	metrics := telemetry.NewMetricsProvider(telemetry.DefaultMetricsConfig())
	if err := metrics.Error(); err != nil {
		logging.Warn().Add(logging.ErrorField(err)).Msg("metrics disabled")
	}

	executor := resilience.NewExecutorFromConfig(resilience.ExecutorConfig{
		MaxConcurrent:           cfg.Resilience.MaxConcurrent,
		CircuitBreakerThreshold: cfg.Resilience.CircuitBreakerThreshold,
		RetryMaxAttempts:        cfg.Resilience.RetryAttempts,
		RetryInitialDelay:       100 * time.Millisecond,
		Timeout:                 cfg.Resilience.Timeout.Duration(),
	})

	providerID, modelID := cfg.Provider.ID, cfg.Provider.Model
	if o.providerID != "" {
		providerID = o.providerID
	}
	if o.modelID != "" {
		modelID = o.modelID
	}
	maxRetries := cfg.Agent.MaxStepRetries
	if o.maxRetries > 0 {
		maxRetries = o.maxRetries
	}

	rt.conversation = application.NewConversation(application.ConversationConfig{
		Store:    store,
		Locker:   locker,
		MaxSteps: cfg.Agent.MaxSteps,
		AgentOptions: []application.Option{
			application.WithRegistry(rt.registry),
			application.WithGateway(provider.NewGatewayFromConfig(cfg.Provider), providerID, modelID),
			application.WithSystemInstruction(cfg.Agent.SystemInstruction),
			application.WithMaxStepRetries(maxRetries),
			application.WithFailurePolicy(agent.FailurePolicy(cfg.Agent.ToolFailurePolicy)),
			application.WithExecutor(executor),
			application.WithMetrics(metrics),
		},
	})
	return rt, nil
}

// buildStorage opens the configured message store. Redis sessions are
// locked across processes; the other backends lock in process.
func buildStorage(ctx context.Context, cfg config.StorageConfig, rt *runtime) (session.Store, session.Locker, error) {
	switch cfg.Backend {
	case "", "memory":
		return memory.NewSessionStore(), memory.NewLocker(), nil

	case "sqlite":
		var opts []sqlite.Option
		if cfg.DSN != "" {
			opts = append(opts, sqlite.WithDSN(cfg.DSN))
		}
		store, err := sqlite.NewSessionStore(sqlite.DefaultConfig(), opts...)
		if err != nil {
			return nil, nil, err
		}
		rt.closers = append(rt.closers, func(context.Context) error { return store.Close() })
		return store, memory.NewLocker(), nil

	case "redis":
		rc := redis.DefaultConfig()
		opts := []redis.ConfigOption{redis.WithPassword(cfg.Password), redis.WithDB(cfg.DB)}
		if cfg.Address != "" {
			opts = append(opts, redis.WithAddress(cfg.Address))
		}
		if cfg.KeyPrefix != "" {
			opts = append(opts, redis.WithKeyPrefix(cfg.KeyPrefix))
		}
		if ttl := cfg.TTL.Duration(); ttl > 0 {
			opts = append(opts, redis.WithTTL(ttl))
		}
		client, rc, err := redis.NewClient(ctx, rc, opts...)
		if err != nil {
			return nil, nil, err
		}
		rt.closers = append(rt.closers, func(context.Context) error { return client.Close() })
		return redis.NewSessionStoreFromClient(client, rc.KeyPrefix, rc.TTL), redis.NewLocker(client, rc.KeyPrefix), nil

	case "postgres":
		var opts []postgres.ConfigOption
		if cfg.DSN != "" {
			opts = append(opts, postgres.WithDSN(cfg.DSN))
		}
		if cfg.Schema != "" {
			opts = append(opts, postgres.WithSchema(cfg.Schema))
		}
		pc := postgres.NewConfig(opts...)
		pool, err := postgres.Connect(ctx, pc)
		if err != nil {
			return nil, nil, err
		}
		store := postgres.NewSessionStore(pool, pc.Schema)
		rt.closers = append(rt.closers, func(context.Context) error { return store.Close() })
		if err := store.Migrate(ctx); err != nil {
			return nil, nil, err
		}
		return store, memory.NewLocker(), nil

	default:
		return nil, nil, fmt.Errorf("unknown storage backend: %s", cfg.Backend)
	}
}

package cmd

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spigell/interview-scorer/internal/ai"
	"github.com/spigell/interview-scorer/internal/ai/gemini"
	"github.com/spigell/interview-scorer/internal/engine"
	"github.com/spigell/interview-scorer/internal/gating"
	"github.com/spigell/interview-scorer/internal/interview"
	"github.com/spigell/interview-scorer/internal/logger"
	"github.com/spigell/interview-scorer/internal/planner"
	"github.com/spigell/interview-scorer/internal/report"
	"github.com/spigell/interview-scorer/internal/scorer"
	"github.com/spigell/interview-scorer/internal/scoring"
	"github.com/spigell/interview-scorer/internal/secrets"
	"github.com/spigell/interview-scorer/internal/storage"
)

// deps holds everything a command needs to drive interview sessions.
type deps struct {
	config *Config
	logger *zap.Logger
	engine *engine.Service
	store  storage.Store
	redis  *redis.Client
}

// newLogger builds the process logger from the persistent flags.
func newLogger() *zap.Logger {
	l, err := logger.New(logger.Options{JSON: viper.GetBool("json"), Debug: viper.GetBool("debug")})
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}
	return l
}

// setup loads the configuration and wires the engine. withAI is false for commands
// that only read stored sessions, so they run without an API key.
func setup(ctx context.Context, withAI bool) *deps {
	l := newLogger()

	config, err := getConfig()
	if err != nil {
		l.Fatal("getting a config", zap.Error(err))
	}

	l.Info("starting the interview-scorer", zap.String("version", version))

	d, err := buildDeps(ctx, config, l, withAI)
	if err != nil {
		l.Fatal("preparing the interview engine", zap.Error(err))
	}
	return d
}

func buildDeps(ctx context.Context, config *Config, l *zap.Logger, withAI bool) (*deps, error) {
	weights, err := config.Scoring.weights()
	if err != nil {
		return nil, err
	}

	var assistant ai.Assistant = offlineAssistant{}
	if withAI {
		assistant, err = newAssistant(ctx, config.AI, l)
		if err != nil {
			return nil, err
		}
	}

	store, err := newStore(config.Storage, l)
	if err != nil {
		return nil, err
	}

	d := &deps{config: config, logger: l, store: store}

	locker, err := d.newLocker(ctx, config.Lock)
	if err != nil {
		d.Close()
		return nil, err
	}

	timeout := config.Interview.CallTimeout
	builder := report.NewBuilder(scoring.NewAggregator(weights), assistant, config.Gate.gating(), timeout, l)

	for _, status := range gating.Describe(builder.Rules()) {
		fields := make([]zap.Field, 0, len(status.Details)+1)
		fields = append(fields, zap.String("rule", status.Name))
		for k, v := range status.Details {
			fields = append(fields, zap.String(k, v))
		}
		l.Debug("recommendation gate rule", fields...)
	}

	d.engine = engine.New(
		planner.New(assistant, timeout, l),
		scorer.New(assistant, timeout, l),
		builder,
		store,
		l,
		engine.WithLocker(locker),
	)
	return d, nil
}

func newAssistant(ctx context.Context, cfg *AIConfig, l *zap.Logger) (ai.Assistant, error) {
	provider := strings.TrimSpace(strings.ToLower(cfg.Provider))
	if provider != "" && provider != gemini.Provider {
		return nil, fmt.Errorf("unsupported ai provider: %s", cfg.Provider)
	}

	apiKey, err := secrets.Load(secrets.Source{
		Name:  "gemini api key",
		Value: cfg.Gemini.APIKey,
		File:  cfg.Gemini.APIKeyFile,
		Env:   "GEMINI_API_KEY",
	})
	if err != nil {
		return nil, fmt.Errorf("%w (set GEMINI_API_KEY, ai.gemini.api-key-file or GEMINI_API_KEY_FILE)", err)
	}

	generator, err := gemini.NewGenerator(ctx, apiKey, cfg.Gemini.Model, cfg.Gemini.MaxRetries, l)
	if err != nil {
		return nil, err
	}

	return gemini.NewAssistant(generator, cfg.Gemini.MaxLogLength, logger.WithAI(l, gemini.Provider, generator.Model())), nil
}

func newStore(cfg *StorageConfig, l *zap.Logger) (storage.Store, error) {
	switch normalizeDriver(cfg.Driver) {
	case "", "memory":
		l.Debug("using in-memory storage, sessions are lost on exit")
		return storage.NewMemoryStore(), nil
	case "postgres":
		if strings.TrimSpace(cfg.DSN) == "" {
			return nil, fmt.Errorf("storage.dsn is required for postgres (or set DATABASE_URL)")
		}
		store, err := storage.OpenPostgres(cfg.DSN, viper.GetBool("debug"), l)
		if err != nil {
			return nil, err
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unsupported storage driver: %s", cfg.Driver)
	}
}

func (d *deps) newLocker(ctx context.Context, cfg *LockConfig) (storage.Locker, error) {
	switch normalizeDriver(cfg.Driver) {
	case "", "local":
		return storage.NewLocalLocker(), nil
	case "redis":
		client, err := storage.DialRedis(ctx, cfg.Redis.Address, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			return nil, err
		}
		d.redis = client
		return storage.NewRedisLocker(client, cfg.Redis.TTL, d.logger), nil
	default:
		return nil, fmt.Errorf("unsupported lock driver: %s", cfg.Driver)
	}
}

func (d *deps) Close() {
	if d.redis != nil {
		if err := d.redis.Close(); err != nil {
			d.logger.Warn("closing redis client", zap.Error(err))
		}
	}
	if d.store != nil {
		if err := d.store.Close(); err != nil {
			d.logger.Warn("closing storage", zap.Error(err))
		}
	}
	_ = d.logger.Sync()
}

// offlineAssistant stands in for the external service in read-only commands.
type offlineAssistant struct{}

var errOffline = fmt.Errorf("%w: ai provider is not configured for this command", ai.ErrExternalService)

func (offlineAssistant) GenerateQuestions(context.Context, ai.QuestionRequest) (map[interview.Category][]ai.QuestionDraft, error) {
	return nil, errOffline
}

func (offlineAssistant) GradeAnswer(context.Context, ai.GradeRequest) (map[string]any, error) {
	return nil, errOffline
}

func (offlineAssistant) GenerateNarrative(context.Context, ai.NarrativeRequest) (*ai.Narrative, error) {
	return nil, errOffline
}

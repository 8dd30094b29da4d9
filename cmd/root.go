package cmd

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/spigell/interview-scorer/internal/gating"
	"github.com/spigell/interview-scorer/internal/interview"
	"github.com/spigell/interview-scorer/internal/planner"
	"github.com/spigell/interview-scorer/internal/scoring"
)

const (
	app = "interview-scorer"
)

type Config struct {
	Interview *InterviewConfig `mapstructure:"interview"`
	Scoring   *ScoringConfig   `mapstructure:"scoring"`
	Gate      *GateConfig      `mapstructure:"gate"`
	AI        *AIConfig        `mapstructure:"ai"`
	Storage   *StorageConfig   `mapstructure:"storage"`
	Lock      *LockConfig      `mapstructure:"lock"`
}

type InterviewConfig struct {
	Questions   int           `mapstructure:"questions"`
	CallTimeout time.Duration `mapstructure:"call-timeout"`
}

type ScoringConfig struct {
	Weights map[string]float64 `mapstructure:"weights"`
}

type GateConfig struct {
	HireCompletion    float64 `mapstructure:"hire-completion"`
	MinimumCompletion float64 `mapstructure:"minimum-completion"`
	MinScoredAnswers  int     `mapstructure:"min-scored-answers"`
}

type AIConfig struct {
	Provider string        `mapstructure:"provider"`
	Gemini   *GeminiConfig `mapstructure:"gemini"`
}

type GeminiConfig struct {
	APIKey       string `mapstructure:"api-key"`
	APIKeyFile   string `mapstructure:"api-key-file"`
	Model        string `mapstructure:"model"`
	MaxRetries   int    `mapstructure:"max-retries"`
	MaxLogLength int    `mapstructure:"max-log-length"`
}

type StorageConfig struct {
	Driver string `mapstructure:"driver"`
	DSN    string `mapstructure:"dsn"`
}

type LockConfig struct {
	Driver string       `mapstructure:"driver"`
	Redis  *RedisConfig `mapstructure:"redis"`
}

type RedisConfig struct {
	Address  string        `mapstructure:"address"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	TTL      time.Duration `mapstructure:"ttl"`
}

var (
	// Used for flags.
	cfgFile string

	rootCmd = &cobra.Command{
		Use:   app,
		Short: "interview-scorer runs AI-assisted technical interviews and scores the answers",
	}
)

// Execute executes the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	bindEnv := map[string]string{
		"ai.gemini.api-key-file": "GEMINI_API_KEY_FILE",
		"storage.dsn":            "DATABASE_URL",
		"lock.redis.address":     "REDIS_ADDR",
	}
	for key, env := range bindEnv {
		if err := viper.BindEnv(key, env); err != nil {
			log.Fatalf("binding %s environment variable: %v", env, err)
		}
	}

	setDefaults()

	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "a config file (default is interview-scorer.yaml in current directory)")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "verbose/debug output")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "json format for logging")

	viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
}

func setDefaults() {
	viper.SetDefault("interview.questions", planner.DefaultQuestions)
	viper.SetDefault("interview.call-timeout", 60*time.Second)
	for c, w := range scoring.DefaultWeights() {
		viper.SetDefault("scoring.weights."+string(c), w)
	}
	viper.SetDefault("gate.hire-completion", gating.DefaultHireCompletion)
	viper.SetDefault("gate.minimum-completion", gating.DefaultMinimumCompletion)
	viper.SetDefault("gate.min-scored-answers", gating.DefaultMinScoredAnswers)
	viper.SetDefault("ai.provider", "gemini")
	viper.SetDefault("ai.gemini.model", "gemini-2.5-pro")
	viper.SetDefault("ai.gemini.max-retries", 3)
	viper.SetDefault("ai.gemini.max-log-length", 200)
	viper.SetDefault("storage.driver", "memory")
	viper.SetDefault("lock.driver", "local")
	viper.SetDefault("lock.redis.address", "localhost:6379")
	viper.SetDefault("lock.redis.ttl", 2*time.Minute)
}

func initConfig() {
	// The version command needs no configuration.
	if versionCmd.CalledAs() != "" {
		return
	}

	// .env is optional, real environment variables win over it.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Fatalf("loading .env: %v", err)
	}

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigName(app)
		viper.SetConfigType("yaml")
	}

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		// Defaults are enough to run unless a config file was requested explicitly.
		if cfgFile != "" || !errors.As(err, &notFound) {
			log.Fatal(err)
		}
	}
}

func getConfig() (*Config, error) {
	var config *Config
	if err := viper.Unmarshal(&config); err != nil {
		return config, err
	}
	if config == nil {
		return nil, errors.New("config is empty")
	}
	if config.Interview == nil {
		config.Interview = &InterviewConfig{}
	}
	if config.Scoring == nil {
		config.Scoring = &ScoringConfig{}
	}
	if config.Gate == nil {
		config.Gate = &GateConfig{}
	}
	if config.AI == nil {
		config.AI = &AIConfig{}
	}
	if config.AI.Gemini == nil {
		config.AI.Gemini = &GeminiConfig{}
	}
	if config.Storage == nil {
		config.Storage = &StorageConfig{}
	}
	if config.Lock == nil {
		config.Lock = &LockConfig{}
	}
	if config.Lock.Redis == nil {
		config.Lock.Redis = &RedisConfig{}
	}

	return config, nil
}

// weights converts configured category names into scoring weights.
func (c *ScoringConfig) weights() (scoring.Weights, error) {
	if len(c.Weights) == 0 {
		return scoring.DefaultWeights(), nil
	}

	weights := make(scoring.Weights, len(c.Weights))
	for name, w := range c.Weights {
		category, err := interview.ParseCategory(name)
		if err != nil {
			return nil, fmt.Errorf("scoring.weights: %w", err)
		}
		weights[category] = w
	}
	if err := weights.Validate(); err != nil {
		return nil, fmt.Errorf("scoring.weights: %w", err)
	}
	return weights, nil
}

// gating passes thresholds through as set, so zero disables a rule.
// Unset keys already carry the viper defaults.
func (c *GateConfig) gating() gating.Config {
	return gating.Config{
		HireCompletion:    gating.Threshold(c.HireCompletion),
		MinimumCompletion: gating.Threshold(c.MinimumCompletion),
		MinScoredAnswers:  c.MinScoredAnswers,
	}
}

func normalizeDriver(driver string) string {
	return strings.ToLower(strings.TrimSpace(driver))
}

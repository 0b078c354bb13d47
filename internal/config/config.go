package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Load reads the .env file specified by CAUSEWAY_ENV (or .env by default),
// then loads the corresponding .secret file if it exists.
// All config is flat env vars read via os.Getenv after loading.
func Load() error {
	envFile := os.Getenv("CAUSEWAY_ENV")
	if envFile == "" {
		envFile = ".env"
	}

	// Load main env file (ignore error if file doesn't exist)
	_ = godotenv.Load(envFile)

	// Load secret sidecar if it exists
	_ = godotenv.Load(envFile + ".secret")

	return nil
}

func ServerPort() int {
	port, err := strconv.Atoi(os.Getenv("SERVER_PORT"))
	if err != nil {
		return 8080
	}
	return port
}

func ServerAddr() string {
	return fmt.Sprintf(":%d", ServerPort())
}

func DatabaseURL() string {
	return os.Getenv("DATABASE_URL")
}

func OpenAIAPIKey() string {
	return os.Getenv("OPENAI_API_KEY")
}

func AnthropicAPIKey() string {
	return os.Getenv("ANTHROPIC_API_KEY")
}

// OracleProvider returns the configured knowledge-oracle provider.
// Defaults to "openai" if not set.
// Valid values: openai, anthropic, mock
func OracleProvider() string {
	p := os.Getenv("ORACLE_PROVIDER")
	if p == "" {
		return "openai"
	}
	return p
}

// OracleAPIKey returns the API key for the configured oracle provider.
func OracleAPIKey() string {
	switch OracleProvider() {
	case "anthropic":
		return AnthropicAPIKey()
	case "mock":
		return ""
	default:
		return OpenAIAPIKey()
	}
}

// OracleModel returns the model override for the oracle provider, or empty
// for the provider default.
func OracleModel() string {
	return os.Getenv("ORACLE_MODEL")
}

// OracleRPS returns the oracle request rate limit.
// Defaults to 2 if not set.
func OracleRPS() float64 {
	rps, err := strconv.ParseFloat(os.Getenv("ORACLE_RPS"), 64)
	if err != nil || rps <= 0 {
		return 2
	}
	return rps
}

// OracleMaxRetries returns the retry budget per oracle call.
// Defaults to 3 if not set.
func OracleMaxRetries() int {
	n, err := strconv.Atoi(os.Getenv("ORACLE_MAX_RETRIES"))
	if err != nil || n < 0 {
		return 3
	}
	return n
}

// APIKey returns the static key guarding the v1 routes. Empty disables auth.
func APIKey() string {
	return os.Getenv("API_KEY")
}

// DiscoveryAlpha weights knowledge against statistical confidence.
// Defaults to 0.6 if not set.
func DiscoveryAlpha() float64 {
	return envFloat("DISCOVERY_ALPHA", 0.6)
}

// DiscoverySamples is the self-consistency sample count per oracle question.
// Defaults to 5 if not set.
func DiscoverySamples() int {
	n, err := strconv.Atoi(os.Getenv("DISCOVERY_SAMPLES"))
	if err != nil || n <= 0 {
		return 5
	}
	return n
}

// DiscoveryContradictionThreshold is the |strength| at which evidence
// counts as contradicting the oracle. Defaults to 0.5 if not set.
func DiscoveryContradictionThreshold() float64 {
	return envFloat("DISCOVERY_CONTRADICTION_THRESHOLD", 0.5)
}

// DiscoveryMaxIterations bounds the validate-repair loop.
// Defaults to 3 if not set.
func DiscoveryMaxIterations() int {
	n, err := strconv.Atoi(os.Getenv("DISCOVERY_MAX_ITERATIONS"))
	if err != nil || n <= 0 {
		return 3
	}
	return n
}

// DiscoverySignificance is the significance level for independence tests.
// Defaults to 0.05 if not set.
func DiscoverySignificance() float64 {
	return envFloat("DISCOVERY_SIGNIFICANCE", 0.05)
}

// DiscoveryAcceptThreshold is the hybrid-confidence bar for edge acceptance.
// Defaults to 0.6 if not set.
func DiscoveryAcceptThreshold() float64 {
	return envFloat("DISCOVERY_ACCEPT_THRESHOLD", 0.6)
}

// DiscoveryDeferThreshold is the knowledge-confidence floor under which a
// candidate edge is deferred outright. Defaults to 0.3 if not set.
func DiscoveryDeferThreshold() float64 {
	return envFloat("DISCOVERY_DEFER_THRESHOLD", 0.3)
}

// DiscoveryScoreFloor is the per-test validation score gating satisfaction.
// Defaults to 0.6 if not set.
func DiscoveryScoreFloor() float64 {
	return envFloat("DISCOVERY_SCORE_FLOOR", 0.6)
}

// DiscoveryMinEdgeConfidence is the floor under which repair drops edges.
// Defaults to 0.3 if not set.
func DiscoveryMinEdgeConfidence() float64 {
	return envFloat("DISCOVERY_MIN_EDGE_CONFIDENCE", 0.3)
}

// DiscoveryViolationPenalty is subtracted from statistically violated edges
// during repair. Defaults to 0.2 if not set.
func DiscoveryViolationPenalty() float64 {
	return envFloat("DISCOVERY_VIOLATION_PENALTY", 0.2)
}

func MigrationsPath() string {
	p := os.Getenv("MIGRATIONS_PATH")
	if p == "" {
		return "migrations"
	}
	return p
}

// RateLimitRPS returns requests per second limit.
// Defaults to 100 if not set.
func RateLimitRPS() float64 {
	rps, err := strconv.ParseFloat(os.Getenv("RATE_LIMIT_RPS"), 64)
	if err != nil || rps <= 0 {
		return 100
	}
	return rps
}

// RateLimitBurst returns the burst size for rate limiting.
// Defaults to 20 if not set.
func RateLimitBurst() int {
	burst, err := strconv.Atoi(os.Getenv("RATE_LIMIT_BURST"))
	if err != nil || burst <= 0 {
		return 20
	}
	return burst
}

// LogLevel returns the log level (debug, info, warn, error).
// Defaults to "info" if not set.
func LogLevel() string {
	level := os.Getenv("LOG_LEVEL")
	if level == "" {
		return "info"
	}
	return level
}

func envFloat(key string, def float64) float64 {
	v, err := strconv.ParseFloat(os.Getenv(key), 64)
	if err != nil || v < 0 {
		return def
	}
	return v
}

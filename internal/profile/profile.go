package profile

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Profile is configuration to start main server.
type Profile struct {
	// Text generation (OpenAI-compatible protocol, or gemini)
	LLMProvider string // Provider identifier: openai, deepseek, openrouter, siliconflow, zai, ollama, gemini
	LLMAPIKey   string
	LLMBaseURL  string // Optional, has default per provider
	LLMModel    string
	LLMTimeout  int // Request timeout in seconds (default: 60)

	// Reputation ledger (Solana JSON-RPC)
	LedgerRPCURL       string
	LedgerProgramID    string
	LedgerPollInterval int     // Seconds between snapshots (default: 30)
	LedgerRPS          float64 // Request rate limit (default: 2)

	// Matching
	Oversample       int    // Retrieval oversample factor (default: 2)
	TeamMaxPool      int    // Exhaustive team search bound (default: 30)
	TeamMaxSubsets   int    // Subsets per team search (default: 1000000)
	HistoryQueueSize int    // Async match history queue (default: 256)
	RulesFile        string // Optional YAML rule table override

	Mode    string
	Addr    string
	Port    int
	Data    string
	Driver  string
	DSN     string
	Version string
}

// Provider default configurations for text generation.
// Used when LLM_BASE_URL or LLM_MODEL is not explicitly set.
var llmProviderDefaults = map[string]struct {
	BaseURL string
	Model   string
}{
	"openai": {
		BaseURL: "https://api.openai.com/v1",
		Model:   "gpt-4o-mini",
	},
	"deepseek": {
		BaseURL: "https://api.deepseek.com",
		Model:   "deepseek-chat",
	},
	"openrouter": {
		BaseURL: "https://openrouter.ai/api/v1",
		Model:   "deepseek/deepseek-chat",
	},
	"siliconflow": {
		BaseURL: "https://api.siliconflow.cn/v1",
		Model:   "Qwen/Qwen2.5-72B-Instruct",
	},
	"zai": {
		BaseURL: "https://open.bigmodel.cn/api/paas/v4",
		Model:   "glm-4.7",
	},
	"ollama": {
		BaseURL: "http://localhost:11434/v1",
		Model:   "llama3.1",
	},
	"gemini": {
		Model: "gemini-2.5-flash",
	},
}

func (p *Profile) IsDev() bool {
	return p.Mode != "prod"
}

// IsLLMEnabled returns true if a text-generation key is configured.
// Ollama runs keyless.
func (p *Profile) IsLLMEnabled() bool {
	return p.LLMAPIKey != "" || p.LLMProvider == "ollama"
}

// IsLedgerEnabled returns true if the reconciler has something to poll.
func (p *Profile) IsLedgerEnabled() bool {
	return p.LedgerRPCURL != "" && p.LedgerProgramID != ""
}

// getEnvOrDefault returns environment variable value or default value.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvOrDefaultInt returns environment variable value as int or default value.
func getEnvOrDefaultInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvOrDefaultFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

// FromEnv loads configuration from environment variables.
func (p *Profile) FromEnv() {
	p.LLMProvider = getEnvOrDefault("MIRRORMATCH_LLM_PROVIDER", "openai")
	p.LLMAPIKey = getEnvOrDefault("MIRRORMATCH_LLM_API_KEY", "")
	p.LLMBaseURL = getEnvOrDefault("MIRRORMATCH_LLM_BASE_URL", "")
	p.LLMModel = getEnvOrDefault("MIRRORMATCH_LLM_MODEL", "")
	p.LLMTimeout = getEnvOrDefaultInt("MIRRORMATCH_LLM_TIMEOUT_SECONDS", 60)

	if _, ok := llmProviderDefaults[p.LLMProvider]; !ok {
		slog.Warn("Unknown LLM provider, using default: openai", "provider", p.LLMProvider)
		p.LLMProvider = "openai"
	}
	defaults := llmProviderDefaults[p.LLMProvider]
	if p.LLMBaseURL == "" {
		p.LLMBaseURL = defaults.BaseURL
	}
	if p.LLMModel == "" {
		p.LLMModel = defaults.Model
	}

	p.LedgerRPCURL = getEnvOrDefault("MIRRORMATCH_LEDGER_RPC_URL", "")
	p.LedgerProgramID = getEnvOrDefault("MIRRORMATCH_LEDGER_PROGRAM_ID", "")
	p.LedgerPollInterval = getEnvOrDefaultInt("MIRRORMATCH_LEDGER_POLL_SECONDS", 30)
	p.LedgerRPS = getEnvOrDefaultFloat("MIRRORMATCH_LEDGER_RPS", 2)

	p.Oversample = getEnvOrDefaultInt("MIRRORMATCH_OVERSAMPLE", 2)
	p.TeamMaxPool = getEnvOrDefaultInt("MIRRORMATCH_TEAM_MAX_POOL", 30)
	p.TeamMaxSubsets = getEnvOrDefaultInt("MIRRORMATCH_TEAM_MAX_SUBSETS", 1_000_000)
	p.HistoryQueueSize = getEnvOrDefaultInt("MIRRORMATCH_HISTORY_QUEUE_SIZE", 256)
	p.RulesFile = getEnvOrDefault("MIRRORMATCH_RULES_FILE", "")
}

func checkDataDir(dataDir string) (string, error) {
	// Convert to absolute path if relative path is supplied.
	if !filepath.IsAbs(dataDir) {
		relativeDir := filepath.Join(filepath.Dir(os.Args[0]), dataDir)
		absDir, err := filepath.Abs(relativeDir)
		if err != nil {
			return "", err
		}
		dataDir = absDir
	}

	// Trim trailing \ or / in case user supplies
	dataDir = strings.TrimRight(dataDir, "\\/")
	if _, err := os.Stat(dataDir); err != nil {
		return "", errors.Wrapf(err, "unable to access data folder %s", dataDir)
	}
	return dataDir, nil
}

func (p *Profile) Validate() error {
	if p.Mode != "demo" && p.Mode != "dev" && p.Mode != "prod" {
		p.Mode = "demo"
	}

	if p.Mode == "prod" && p.Data == "" {
		if runtime.GOOS == "windows" {
			p.Data = filepath.Join(os.Getenv("ProgramData"), "mirrormatch")
			if _, err := os.Stat(p.Data); os.IsNotExist(err) {
				if err := os.MkdirAll(p.Data, 0770); err != nil {
					slog.Error("failed to create data directory", slog.String("data", p.Data), slog.String("error", err.Error()))
					return err
				}
			}
		} else {
			p.Data = "/var/opt/mirrormatch"
		}
	}

	dataDir, err := checkDataDir(p.Data)
	if err != nil {
		slog.Error("failed to check dsn", slog.String("data", dataDir), slog.String("error", err.Error()))
		return err
	}
	p.Data = dataDir

	switch p.Driver {
	case "sqlite":
		if p.DSN == "" {
			p.DSN = filepath.Join(dataDir, fmt.Sprintf("mirrormatch_%s.db", p.Mode))
		}
	case "postgres":
		if p.DSN == "" {
			return errors.New("postgres driver requires a DSN")
		}
	default:
		return errors.Errorf("unsupported driver: %s", p.Driver)
	}

	if p.Oversample < 1 {
		p.Oversample = 1
	}
	if p.LedgerPollInterval < 1 {
		p.LedgerPollInterval = 30
	}
	return nil
}

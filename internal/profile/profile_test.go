package profile

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var profileEnvVars = []string{
	"MIRRORMATCH_LLM_PROVIDER",
	"MIRRORMATCH_LLM_API_KEY",
	"MIRRORMATCH_LLM_BASE_URL",
	"MIRRORMATCH_LLM_MODEL",
	"MIRRORMATCH_LLM_TIMEOUT_SECONDS",
	"MIRRORMATCH_LEDGER_RPC_URL",
	"MIRRORMATCH_LEDGER_PROGRAM_ID",
	"MIRRORMATCH_LEDGER_POLL_SECONDS",
	"MIRRORMATCH_LEDGER_RPS",
	"MIRRORMATCH_OVERSAMPLE",
	"MIRRORMATCH_TEAM_MAX_POOL",
	"MIRRORMATCH_TEAM_MAX_SUBSETS",
	"MIRRORMATCH_HISTORY_QUEUE_SIZE",
	"MIRRORMATCH_RULES_FILE",
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range profileEnvVars {
		t.Setenv(key, "")
	}
}

// TestProfileDefaults checks the values used when nothing is configured.
func TestProfileDefaults(t *testing.T) {
	clearEnv(t)

	profile := &Profile{}
	profile.FromEnv()

	tests := []struct {
		name     string
		expected any
		actual   any
	}{
		{"LLMProvider", "openai", profile.LLMProvider},
		{"LLMBaseURL", "https://api.openai.com/v1", profile.LLMBaseURL},
		{"LLMModel", "gpt-4o-mini", profile.LLMModel},
		{"LLMTimeout", 60, profile.LLMTimeout},
		{"LedgerPollInterval", 30, profile.LedgerPollInterval},
		{"LedgerRPS", 2.0, profile.LedgerRPS},
		{"Oversample", 2, profile.Oversample},
		{"TeamMaxPool", 30, profile.TeamMaxPool},
		{"TeamMaxSubsets", 1000000, profile.TeamMaxSubsets},
		{"HistoryQueueSize", 256, profile.HistoryQueueSize},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.actual != tt.expected {
				t.Errorf("%s: expected %v, got %v", tt.name, tt.expected, tt.actual)
			}
		})
	}

	assert.False(t, profile.IsLLMEnabled())
	assert.False(t, profile.IsLedgerEnabled())
}

func TestProfileFromEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("MIRRORMATCH_LLM_PROVIDER", "deepseek")
	t.Setenv("MIRRORMATCH_LLM_API_KEY", "sk-test")
	t.Setenv("MIRRORMATCH_LEDGER_RPC_URL", "https://api.devnet.solana.com")
	t.Setenv("MIRRORMATCH_LEDGER_PROGRAM_ID", "Prog1111")
	t.Setenv("MIRRORMATCH_LEDGER_RPS", "0.5")
	t.Setenv("MIRRORMATCH_TEAM_MAX_POOL", "not-a-number")

	profile := &Profile{}
	profile.FromEnv()

	assert.Equal(t, "deepseek", profile.LLMProvider)
	assert.Equal(t, "https://api.deepseek.com", profile.LLMBaseURL)
	assert.Equal(t, "deepseek-chat", profile.LLMModel)
	assert.True(t, profile.IsLLMEnabled())
	assert.True(t, profile.IsLedgerEnabled())
	assert.Equal(t, 0.5, profile.LedgerRPS)
	assert.Equal(t, 30, profile.TeamMaxPool)
}

func TestProfileUnknownProvider(t *testing.T) {
	clearEnv(t)
	t.Setenv("MIRRORMATCH_LLM_PROVIDER", "nope")
	t.Setenv("MIRRORMATCH_LLM_MODEL", "custom-model")

	profile := &Profile{}
	profile.FromEnv()

	assert.Equal(t, "openai", profile.LLMProvider)
	assert.Equal(t, "custom-model", profile.LLMModel)
}

func TestProfileOllamaKeyless(t *testing.T) {
	clearEnv(t)
	t.Setenv("MIRRORMATCH_LLM_PROVIDER", "ollama")

	profile := &Profile{}
	profile.FromEnv()
	assert.True(t, profile.IsLLMEnabled())
}

func TestValidate(t *testing.T) {
	dir := t.TempDir()

	p := &Profile{Mode: "weird", Data: dir, Driver: "sqlite"}
	require.NoError(t, p.Validate())
	assert.Equal(t, "demo", p.Mode)
	assert.Contains(t, p.DSN, "mirrormatch_demo.db")
	assert.Equal(t, 1, p.Oversample)

	p = &Profile{Mode: "dev", Data: dir, Driver: "postgres"}
	assert.Error(t, p.Validate())

	p = &Profile{Mode: "dev", Data: dir, Driver: "mysql", DSN: "x"}
	assert.Error(t, p.Validate())

	p = &Profile{Mode: "dev", Data: dir + string(os.PathSeparator) + "missing", Driver: "sqlite"}
	assert.Error(t, p.Validate())
}

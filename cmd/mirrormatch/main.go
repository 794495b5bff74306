package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/joho/godotenv"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/hrygo/mirrormatch/ai/core/llm"
	"github.com/hrygo/mirrormatch/ai/insight"
	"github.com/hrygo/mirrormatch/ai/metrics"
	"github.com/hrygo/mirrormatch/ai/services/stats"
	"github.com/hrygo/mirrormatch/internal/profile"
	"github.com/hrygo/mirrormatch/internal/version"
	"github.com/hrygo/mirrormatch/matching"
	"github.com/hrygo/mirrormatch/plugin/ledger"
	"github.com/hrygo/mirrormatch/server"
	"github.com/hrygo/mirrormatch/server/router/mcptools"
	"github.com/hrygo/mirrormatch/server/service/matchmaker"
	"github.com/hrygo/mirrormatch/server/service/reputation"
	"github.com/hrygo/mirrormatch/store"
	"github.com/hrygo/mirrormatch/store/db"
)

var (
	rootCmd = &cobra.Command{
		Use:   "mirrormatch",
		Short: `Personality-vector matchmaking: pairwise scores, candidate matching and hackathon team search.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// Systemd services get their environment from the unit file.
			if !isRunningAsSystemdService() {
				_ = godotenv.Load()
			}
			return nil
		},
		Run: func(cmd *cobra.Command, args []string) {
			serveCmd.Run(cmd, args)
		},
	}

	serveCmd = &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API (and the ledger reconciler when configured)",
		Run: func(_ *cobra.Command, _ []string) {
			instanceProfile, err := loadProfile()
			if err != nil {
				panic(err)
			}

			ctx, cancel := context.WithCancel(context.Background())
			storeInstance, err := openStore(ctx, instanceProfile)
			if err != nil {
				cancel()
				slog.Error("failed to open store", "error", err)
				return
			}

			exporter := metrics.NewPrometheusExporter(metrics.DefaultConfig())
			history := stats.NewPersister(storeInstance, instanceProfile.HistoryQueueSize, slog.Default(), exporter)
			svc, err := newMatchmaker(instanceProfile, storeInstance,
				matchmaker.WithHistory(history),
				matchmaker.WithMetrics(exporter))
			if err != nil {
				cancel()
				slog.Error("failed to create matchmaker", "error", err)
				return
			}

			opts := []server.Option{server.WithHistory(history)}
			if instanceProfile.IsLedgerEnabled() {
				opts = append(opts, server.WithReconciler(newReconciler(instanceProfile, storeInstance, exporter)))
			}

			s, err := server.NewServer(ctx, instanceProfile, storeInstance, svc, opts...)
			if err != nil {
				cancel()
				slog.Error("failed to create server", "error", err)
				return
			}

			c := make(chan os.Signal, 1)
			signal.Notify(c, terminationSignals...)

			if err := s.Start(ctx); err != nil {
				slog.Error("failed to start server", "error", err)
				cancel()
				return
			}

			printGreetings(instanceProfile)

			go func() {
				<-c
				s.Shutdown(ctx)
				cancel()
			}()

			<-ctx.Done()
		},
	}

	reconcileCmd = &cobra.Command{
		Use:   "reconcile",
		Short: "Run only the ledger reconciler",
		RunE: func(_ *cobra.Command, _ []string) error {
			instanceProfile, err := loadProfile()
			if err != nil {
				return err
			}
			if !instanceProfile.IsLedgerEnabled() {
				return fmt.Errorf("ledger is not configured: set MIRRORMATCH_LEDGER_RPC_URL and MIRRORMATCH_LEDGER_PROGRAM_ID")
			}

			ctx, stop := signal.NotifyContext(context.Background(), terminationSignals...)
			defer stop()

			storeInstance, err := openStore(ctx, instanceProfile)
			if err != nil {
				return err
			}
			defer storeInstance.Close()

			reconciler := newReconciler(instanceProfile, storeInstance, nil)
			slog.Info("reconciler running",
				"rpc_url", instanceProfile.LedgerRPCURL,
				"program_id", instanceProfile.LedgerProgramID,
				"interval_seconds", instanceProfile.LedgerPollInterval)
			reconciler.Run(ctx)
			return nil
		},
	}

	mcpCmd = &cobra.Command{
		Use:   "mcp",
		Short: "Serve the stateless scoring tools over MCP stdio",
		RunE: func(_ *cobra.Command, _ []string) error {
			instanceProfile, err := loadProfile()
			if err != nil {
				return err
			}
			storeInstance, err := openStore(context.Background(), instanceProfile)
			if err != nil {
				return err
			}
			defer storeInstance.Close()

			svc, err := newMatchmaker(instanceProfile, storeInstance)
			if err != nil {
				return err
			}
			// stdout carries the protocol; logs go to stderr.
			slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, nil)))
			return mcpserver.ServeStdio(mcptools.New(svc, instanceProfile.Version))
		},
	}

	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print build information",
		Run: func(_ *cobra.Command, _ []string) {
			info := version.GetInfo(viper.GetString("mode"))
			fmt.Printf("mirrormatch %s\n", info.Version)
			fmt.Printf("commit: %s\nbranch: %s\nbuilt: %s\nrelease: %t\n", info.Commit, info.Branch, info.BuildTime, info.Release)
		},
	}
)

func init() {
	viper.SetDefault("mode", "dev")
	viper.SetDefault("driver", "sqlite")
	viper.SetDefault("port", 8000)

	rootCmd.PersistentFlags().String("mode", "dev", `mode of server, can be "prod" or "dev" or "demo"`)
	rootCmd.PersistentFlags().String("addr", "", "address of server")
	rootCmd.PersistentFlags().Int("port", 8000, "port of server")
	rootCmd.PersistentFlags().String("data", "", "data directory")
	rootCmd.PersistentFlags().String("driver", "sqlite", "database driver (postgres, sqlite)")
	rootCmd.PersistentFlags().String("dsn", "", "database source name(aka. DSN)")

	for _, key := range []string{"mode", "addr", "port", "data", "driver", "dsn"} {
		if err := viper.BindPFlag(key, rootCmd.PersistentFlags().Lookup(key)); err != nil {
			panic(err)
		}
	}

	viper.SetEnvPrefix("mirrormatch")
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))

	rootCmd.AddCommand(serveCmd, reconcileCmd, mcpCmd, versionCmd)
}

func loadProfile() (*profile.Profile, error) {
	instanceProfile := &profile.Profile{
		Mode:    viper.GetString("mode"),
		Addr:    viper.GetString("addr"),
		Port:    viper.GetInt("port"),
		Data:    viper.GetString("data"),
		Driver:  viper.GetString("driver"),
		DSN:     viper.GetString("dsn"),
		Version: version.GetCurrentVersion(viper.GetString("mode")),
	}
	instanceProfile.FromEnv()
	if err := instanceProfile.Validate(); err != nil {
		return nil, err
	}
	return instanceProfile, nil
}

func openStore(ctx context.Context, instanceProfile *profile.Profile) (*store.Store, error) {
	dbDriver, err := db.NewDBDriver(instanceProfile)
	if err != nil {
		return nil, err
	}
	storeInstance := store.New(dbDriver, instanceProfile)
	if err := storeInstance.Migrate(ctx); err != nil {
		_ = storeInstance.Close()
		return nil, fmt.Errorf("failed to migrate: %w", err)
	}
	return storeInstance, nil
}

// newScorer uses the built-in rule table unless a rules file is configured.
func newScorer(instanceProfile *profile.Profile) (*matching.Scorer, error) {
	if instanceProfile.RulesFile == "" {
		return matching.DefaultScorer(), nil
	}
	f, err := os.Open(instanceProfile.RulesFile)
	if err != nil {
		return nil, fmt.Errorf("failed to open rules file: %w", err)
	}
	defer f.Close()

	reg := matching.DefaultRegistry()
	rules, err := matching.LoadRules(f, reg)
	if err != nil {
		return nil, err
	}
	slog.Info("rule table loaded", "path", instanceProfile.RulesFile, "rules", len(rules))
	return matching.NewScorer(reg, rules), nil
}

func newMatchmaker(instanceProfile *profile.Profile, storeInstance *store.Store, opts ...matchmaker.Option) (*matchmaker.Service, error) {
	scorer, err := newScorer(instanceProfile)
	if err != nil {
		return nil, err
	}

	if instanceProfile.IsLLMEnabled() {
		llmService, err := llm.NewService(&llm.Config{
			Provider: instanceProfile.LLMProvider,
			Model:    instanceProfile.LLMModel,
			APIKey:   instanceProfile.LLMAPIKey,
			BaseURL:  instanceProfile.LLMBaseURL,
			Timeout:  instanceProfile.LLMTimeout,
		})
		if err != nil {
			slog.Warn("Failed to initialize LLM service",
				"provider", instanceProfile.LLMProvider,
				"error", err,
				"note", "blurbs and other text features will be disabled",
			)
		} else {
			slog.Info("LLM service initialized",
				"provider", instanceProfile.LLMProvider,
				"model", instanceProfile.LLMModel,
			)
			generator := insight.NewGenerator(llmService, scorer)
			opts = append(opts, matchmaker.WithGenerator(generator))
		}
	} else {
		slog.Info("text generation disabled", "provider", instanceProfile.LLMProvider)
	}

	svc := matchmaker.NewService(storeInstance, matchmaker.Config{
		Oversample:     instanceProfile.Oversample,
		TeamMaxPool:    instanceProfile.TeamMaxPool,
		TeamMaxSubsets: instanceProfile.TeamMaxSubsets,
		Scorer:         scorer,
	}, opts...)
	if g := svc.Generator(); g != nil {
		g.WithMetrics(svc.Metrics())
	}
	return svc, nil
}

func newReconciler(instanceProfile *profile.Profile, storeInstance *store.Store, exporter *metrics.PrometheusExporter) *reputation.Reconciler {
	client := ledger.NewClient(instanceProfile.LedgerRPCURL, instanceProfile.LedgerProgramID, instanceProfile.LedgerRPS)
	interval := time.Duration(instanceProfile.LedgerPollInterval) * time.Second
	return reputation.NewReconciler(client, storeInstance, interval, slog.Default(), exporter)
}

func printGreetings(profile *profile.Profile) {
	fmt.Printf("MirrorMatch %s started successfully!\n", version.String(profile.Mode))

	if profile.IsDev() {
		fmt.Fprint(os.Stderr, "Development mode is enabled\n")
		if profile.DSN != "" {
			fmt.Fprintf(os.Stderr, "Database: %s\n", profile.DSN)
		}
	}

	fmt.Printf("Data directory: %s\n", profile.Data)
	fmt.Printf("Database driver: %s\n", profile.Driver)
	fmt.Printf("Mode: %s\n", profile.Mode)
	fmt.Printf("Text generation: %v\n", profile.IsLLMEnabled())
	fmt.Printf("Ledger reconciler: %v\n", profile.IsLedgerEnabled())

	if len(profile.Addr) == 0 {
		fmt.Printf("Server running on port %d\n", profile.Port)
	} else {
		fmt.Printf("Server running on %s:%d\n", profile.Addr, profile.Port)
	}
}

// isRunningAsSystemdService detects if the process is running under systemd
func isRunningAsSystemdService() bool {
	return os.Getenv("INVOCATION_ID") != "" || os.Getenv("WATCHDOG_USEC") != ""
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		panic(err)
	}
}

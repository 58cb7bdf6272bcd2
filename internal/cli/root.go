package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/lazypower/nudge/internal/config"
	"github.com/lazypower/nudge/internal/engine"
	"github.com/lazypower/nudge/internal/llm"
	"github.com/lazypower/nudge/internal/notify"
	"github.com/lazypower/nudge/internal/observe"
	"github.com/lazypower/nudge/internal/store"
)

var configPath string

// newOracle builds the oracle client; tests swap it for a mock.
var newOracle = llm.NewClient

var rootCmd = &cobra.Command{
	Use:   "nudge",
	Short: "Memory keeper that decides when a reminder is worth sending",
	Long: "Nudge keeps tasks, notes, events and people, scores how urgent they are, " +
		"and sends at most a few WhatsApp reminders an hour. Replies like \"done rent\" close the loop.",
	SilenceUsage: true,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default $NUDGE_CONFIG or ~/.nudge/config.yaml)")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(addCmd)
	rootCmd.AddCommand(doneCmd)
	rootCmd.AddCommand(rmCmd)
	rootCmd.AddCommand(remindCmd)
	rootCmd.AddCommand(scoreCmd)
	rootCmd.AddCommand(replyCmd)
	rootCmd.AddCommand(mcpCmd)
}

func loadConfig() (config.Config, error) {
	path := configPath
	if path == "" {
		path = config.DefaultPath()
	}
	return config.Load(path)
}

func newObserver(cfg config.Config) *observe.Observer {
	return observe.ForFormat(os.Stderr, cfg.Log.Format, cfg.Log.Verbose)
}

// openDB opens the configured database, defaulting to ~/.nudge/memories.db.
func openDB(cfg config.Config) (*store.DB, error) {
	dbPath := cfg.Database.Path
	if dbPath == "" {
		var err error
		dbPath, err = store.DefaultDBPath()
		if err != nil {
			return nil, fmt.Errorf("resolve db path: %w", err)
		}
	}
	db, err := store.Open(dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	return db, nil
}

// newEngine wires the oracle and sender from cfg. A missing oracle is not
// fatal: every oracle call then fails, so scoring leaves urgencies alone and
// selection stays silent.
func newEngine(cfg config.Config, db *store.DB, obs *observe.Observer) (*engine.Engine, error) {
	client, err := newOracle(cfg.LLM)
	if err != nil {
		obs.Log().Warn().Err(err).Msg("oracle not configured, reminders disabled")
		client = &llm.MockClient{Err: fmt.Errorf("oracle not configured: %w", err)}
	} else {
		obs.Log().Info().Str("provider", cfg.LLM.Provider).Str("model", cfg.LLM.Model).Msg("oracle ready")
	}

	sender, err := notify.NewSender(cfg.Notify, obs)
	if err != nil {
		return nil, fmt.Errorf("configure sender: %w", err)
	}

	return engine.New(db, client, sender, cfg, obs), nil
}

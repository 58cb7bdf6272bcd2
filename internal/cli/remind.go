package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/lazypower/nudge/internal/engine"
	"github.com/lazypower/nudge/internal/remote"
)

// --- remind command ---

var (
	remindRemote bool
	remoteURL    string
)

var remindCmd = &cobra.Command{
	Use:   "remind",
	Short: "Run one reminder decision now and deliver the result",
	Long: "Run one reminder decision and delivery. By default the run happens in this process " +
		"against the local database; --remote asks a running server to do it instead.",
	RunE: runRemind,
}

func runRemind(cmd *cobra.Command, args []string) error {
	var res engine.RunResult

	if remindRemote {
		client := remote.NewClient(remoteURL)
		if !client.Healthy() {
			return fmt.Errorf("nudge server not reachable")
		}
		var err error
		if res, err = client.TriggerReminders(); err != nil {
			return err
		}
	} else {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		db, err := openDB(cfg)
		if err != nil {
			return err
		}
		defer db.Close()

		eng, err := newEngine(cfg, db, newObserver(cfg))
		if err != nil {
			return err
		}
		ctx, cancel := context.WithTimeout(cmd.Context(), 2*time.Minute)
		defer cancel()
		if res, err = eng.RunReminders(ctx); err != nil {
			return err
		}
	}

	out := cmd.OutOrStdout()
	if len(res.Selected) == 0 {
		fmt.Fprintln(out, "Nothing worth a reminder right now.")
		return nil
	}
	fmt.Fprintf(out, "Run %s: sent %d reminder(s): %s\n", res.RunID, res.Sent, strings.Join(res.Selected, ", "))
	return nil
}

// --- score command ---

var scoreCmd = &cobra.Command{
	Use:   "score",
	Short: "Rescore the urgency of every pending memory",
	RunE:  runScore,
}

func runScore(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	db, err := openDB(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	eng, err := newEngine(cfg, db, newObserver(cfg))
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(cmd.Context(), 2*time.Minute)
	defer cancel()

	n, err := eng.ScoreAll(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Scored %d memories.\n", n)
	return nil
}

// --- reply command ---

var replyRemote bool

var replyCmd = &cobra.Command{
	Use:   "reply [text]",
	Short: "Answer as if replying on WhatsApp (help, list, done <query>, snooze <query>)",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runReply,
}

func runReply(cmd *cobra.Command, args []string) error {
	text := strings.Join(args, " ")

	if replyRemote {
		reply, err := remote.NewClient(remoteURL).Command(text)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), reply)
		return nil
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	db, err := openDB(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	eng, err := newEngine(cfg, db, newObserver(cfg))
	if err != nil {
		return err
	}
	// A local snooze only writes its marker; the serving process re-arms it on restart.
	defer eng.Snoozer.Stop()

	fmt.Fprintln(cmd.OutOrStdout(), eng.HandleCommand(cmd.Context(), text))
	return nil
}

func init() {
	remindCmd.Flags().BoolVar(&remindRemote, "remote", false, "Trigger the run on a running server")
	replyCmd.Flags().BoolVar(&replyRemote, "remote", false, "Send the reply to a running server")
	rootCmd.PersistentFlags().StringVar(&remoteURL, "url", "", "Server URL for --remote (default $NUDGE_URL or http://127.0.0.1:8080)")
}

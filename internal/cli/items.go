package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/lazypower/nudge/internal/remote"
	"github.com/lazypower/nudge/internal/store"
)

// --- list command ---

var (
	listAll    bool
	listRemote bool
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List pending memories, most urgent first",
	RunE:  runList,
}

func runList(cmd *cobra.Command, args []string) error {
	items, err := loadItems()
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if len(items) == 0 {
		fmt.Fprintln(out, "No memories.")
		return nil
	}
	for _, it := range items {
		status := " "
		if it.Done {
			status = "x"
		}
		due := it.DueDate
		if due == "" {
			due = "-"
		}
		fmt.Fprintf(out, "[%s] %-26s %-6s %4.1f  %-10s  %s\n", status, it.ID, it.Type, it.Urgency, due, it.Title)
	}
	return nil
}

func loadItems() ([]store.Item, error) {
	if listRemote {
		items, err := remote.NewClient(remoteURL).Memories()
		if err != nil || listAll {
			return items, err
		}
		undone := items[:0]
		for _, it := range items {
			if !it.Done {
				undone = append(undone, it)
			}
		}
		return undone, nil
	}

	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	db, err := openDB(cfg)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	if listAll {
		return db.GetAll()
	}
	return db.GetUndone()
}

// --- add command ---

var (
	addType   string
	addDetail string
	addDue    string
	addTags   []string
)

var addCmd = &cobra.Command{
	Use:   "add [title]",
	Short: "Add a memory",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runAdd,
}

func runAdd(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	db, err := openDB(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	it := store.Item{
		ID:      store.NewID(),
		Type:    addType,
		Title:   strings.Join(args, " "),
		Detail:  addDetail,
		DueDate: addDue,
		Tags:    addTags,
	}
	if err := db.Upsert(&it); err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Added %s %q (%s).\n", it.Type, it.Title, it.ID)

	// Every upsert triggers a rescore. Failing to score never fails the add.
	obs := newObserver(cfg)
	eng, err := newEngine(cfg, db, obs)
	if err != nil {
		obs.Log().Warn().Err(err).Msg("rescore skipped")
		fmt.Fprintln(out, "Urgency not scored yet; run `nudge score` later.")
		return nil
	}
	ctx, cancel := context.WithTimeout(cmd.Context(), 2*time.Minute)
	defer cancel()
	if _, err := eng.ScoreAll(ctx); err != nil {
		obs.Log().Warn().Err(err).Msg("rescore after add failed")
		fmt.Fprintln(out, "Urgency not scored yet; run `nudge score` later.")
		return nil
	}
	if scored, err := db.GetItem(it.ID); err == nil && scored != nil {
		fmt.Fprintf(out, "Urgency %.1f/10\n", scored.Urgency)
	}
	return nil
}

// --- done command ---

var doneCmd = &cobra.Command{
	Use:   "done [query]",
	Short: "Mark the best-matching pending memory as done",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runDone,
}

func runDone(cmd *cobra.Command, args []string) error {
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
	fmt.Fprintln(cmd.OutOrStdout(), eng.HandleCommand(cmd.Context(), "done "+strings.Join(args, " ")))
	return nil
}

// --- rm command ---

var rmCmd = &cobra.Command{
	Use:   "rm [id]",
	Short: "Delete a memory and its reminder history",
	Args:  cobra.ExactArgs(1),
	RunE:  runRm,
}

func runRm(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	db, err := openDB(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := db.Delete(args[0]); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("no memory with id %s", args[0])
		}
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", args[0])
	return nil
}

func init() {
	listCmd.Flags().BoolVarP(&listAll, "all", "a", false, "Include done memories")
	listCmd.Flags().BoolVar(&listRemote, "remote", false, "List from a running server")

	addCmd.Flags().StringVarP(&addType, "type", "t", "task", "task, note, event or person")
	addCmd.Flags().StringVarP(&addDetail, "detail", "d", "", "Free-text detail")
	addCmd.Flags().StringVar(&addDue, "due", "", "Due date (YYYY-MM-DD)")
	addCmd.Flags().StringSliceVar(&addTags, "tag", nil, "Tag (repeatable)")
}

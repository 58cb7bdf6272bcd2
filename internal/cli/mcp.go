package cli

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"github.com/lazypower/nudge/internal/engine"
	"github.com/lazypower/nudge/internal/mcpserver"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve memory tools over MCP (stdio)",
	RunE:  runMCP,
}

func runMCP(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	// stdout carries the protocol; logs stay on stderr.
	obs := newObserver(cfg)

	db, err := openDB(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	eng, err := newEngine(cfg, db, obs)
	if err != nil {
		return err
	}
	defer eng.Snoozer.Stop()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	queue := engine.NewScoreQueue(eng)
	go queue.Run(ctx)

	mcpSrv := mcpserver.New(mcpserver.Deps{DB: db, Engine: eng, Scorer: queue}, VersionString())
	obs.Log().Info().Msg("MCP server started (stdio transport)")

	if err := server.NewStdioServer(mcpSrv).Listen(ctx, os.Stdin, os.Stdout); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

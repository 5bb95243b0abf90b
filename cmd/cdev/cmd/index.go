package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/brianly1003/cdev/internal/domain/events"
	"github.com/brianly1003/cdev/internal/hub"
	"github.com/brianly1003/cdev/internal/sessionindex"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

// indexCmd groups session-index inspection utilities.
var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Inspect the filesystem session index",
}

// indexListCmd runs one full scan and prints the resulting project/session
// tree as JSON.
var indexListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all discovered sessions, grouped by project",
	RunE:  runIndexList,
}

// indexWatchCmd starts the indexer and prints updates as they arrive until
// interrupted.
var indexWatchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Watch for session changes and print updates as they happen",
	RunE:  runIndexWatch,
}

func init() {
	rootCmd.AddCommand(indexCmd)
	indexCmd.AddCommand(indexListCmd)
	indexCmd.AddCommand(indexWatchCmd)
}

func runIndexList(cmd *cobra.Command, args []string) error {
	ix := sessionindex.New(sessionindex.LoadEnvConfig())
	ix.Refresh()
	return printProjects(ix.GetProjects())
}

// runIndexWatch starts the indexer, routes each session the indexer reports
// as new through the domain event hub as a session_indexed event, and prints
// the full project list to stdout after every scan that changed it.
func runIndexWatch(cmd *cobra.Command, args []string) error {
	h := hub.New()
	if err := h.Start(); err != nil {
		return fmt.Errorf("failed to start event hub: %w", err)
	}
	defer h.Stop()

	h.Subscribe(hub.NewLogSubscriber("index-watch-cli", func(e events.Event) {
		payload, _ := e.ToJSON()
		fmt.Fprintf(os.Stderr, "%s %s\n", e.Type(), payload)
	}))

	ix := sessionindex.New(sessionindex.LoadEnvConfig())
	ix.OnUpdate(func(projects []sessionindex.Project) {
		_ = printProjects(projects)
	})
	ix.OnNewSession(func(s sessionindex.Session) {
		h.Publish(events.NewSessionIndexedEvent("", events.SessionIndexedPayload{
			Provider:     string(s.Provider()),
			ProjectPath:  s.ProjectPath,
			SessionID:    s.Key.SessionID,
			FilePath:     s.SourceFile,
			Title:        s.Title,
			Summary:      s.Summary,
			MessageCount: s.MessageCount,
			CreatedAt:    s.CreatedAt,
			UpdatedAt:    time.UnixMilli(s.UpdatedAt),
			IsNew:        true,
		}))
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := ix.Start(ctx); err != nil {
		return fmt.Errorf("failed to start session index: %w", err)
	}
	defer ix.Stop()

	log.Info().Msg("watching for session changes, ctrl-c to stop")
	<-ctx.Done()
	return nil
}

func printProjects(projects []sessionindex.Project) error {
	out, err := json.MarshalIndent(projects, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}

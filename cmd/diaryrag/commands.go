package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"diary-rag/internal/handlers"
	apihttp "diary-rag/internal/http"
	"diary-rag/internal/indexer"
)

// --- serve ---

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API server",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		a, err := newApp(ctx)
		if err != nil {
			return err
		}
		defer a.close()

		router := apihttp.NewRouter(&apihttp.Deps{
			Entries:      a.entries,
			Retriever:    a.retriever(),
			Orchestrator: handlers.OrchestratorFactory(a.orchestrator),
			DB:           a.db,
		})

		addr := ":" + a.cfg.APIPort
		srv := &http.Server{
			Addr:    addr,
			Handler: router,
			BaseContext: func(_ net.Listener) context.Context {
				return ctx
			},
		}

		errCh := make(chan error, 1)
		go func() {
			fmt.Fprintf(os.Stdout, "diaryrag listening on %s\n", addr)
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				errCh <- err
			}
			close(errCh)
		}()

		select {
		case <-ctx.Done():
			fmt.Fprintln(os.Stdout, "shutting down...")
		case err := <-errCh:
			if err != nil {
				return fmt.Errorf("server error: %w", err)
			}
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	},
}

// --- index ---

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Run an indexing pass for one user",
	Long: `Run an indexing pass for one user.

By default only entries newer than the sync watermark are processed.
Use --full to reindex everything, and --clear to drop the user's
collection first (full mode only).`,
	RunE: func(cmd *cobra.Command, args []string) error {
		userID, _ := cmd.Flags().GetInt64("user")
		full, _ := cmd.Flags().GetBool("full")
		clear, _ := cmd.Flags().GetBool("clear")

		if userID <= 0 {
			return fmt.Errorf("--user is required")
		}
		if clear && !full {
			return fmt.Errorf("--clear requires --full")
		}

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		a, err := newApp(ctx)
		if err != nil {
			return err
		}
		defer a.close()

		orch := a.orchestrator(userID)

		var stats *indexer.IndexingStats
		if full {
			stats, err = orch.RunFull(ctx, clear)
		} else {
			stats, err = orch.RunIncremental(ctx)
		}
		printStats(stats)
		if err != nil {
			return err
		}
		if stats.Status == indexer.StatusFailed {
			return fmt.Errorf("indexing run failed")
		}
		return nil
	},
}

func init() {
	indexCmd.Flags().Int64("user", 0, "user id to index")
	indexCmd.Flags().Bool("full", false, "reindex all entries, ignoring the watermark")
	indexCmd.Flags().Bool("clear", false, "drop the user's collection before indexing")
}

// --- stats ---

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show indexing statistics for one user",
	RunE: func(cmd *cobra.Command, args []string) error {
		userID, _ := cmd.Flags().GetInt64("user")
		if userID <= 0 {
			return fmt.Errorf("--user is required")
		}

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		a, err := newApp(ctx)
		if err != nil {
			return err
		}
		defer a.close()

		stats, err := a.orchestrator(userID).Stats(ctx)
		if err != nil {
			return err
		}
		printStats(stats)
		return nil
	},
}

func init() {
	statsCmd.Flags().Int64("user", 0, "user id")
}

func printStats(stats *indexer.IndexingStats) {
	if stats == nil {
		return
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(stats)
}

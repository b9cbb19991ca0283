package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/overtech/overbot/internal/api"
	"github.com/overtech/overbot/internal/audit"
	"github.com/overtech/overbot/internal/build"
	"github.com/overtech/overbot/internal/catalog"
	"github.com/overtech/overbot/internal/config"
	"github.com/overtech/overbot/internal/faq"
	"github.com/overtech/overbot/internal/intent"
	"github.com/overtech/overbot/internal/llm"
	"github.com/overtech/overbot/internal/orchestrator"
	"github.com/overtech/overbot/internal/respond"
	"github.com/overtech/overbot/internal/selector"
	"github.com/overtech/overbot/internal/storage"
)

var mcpEnabled bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the overbot server (foreground)",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServer()
	},
}

func init() {
	serveCmd.Flags().BoolVar(&mcpEnabled, "mcp", false, "also serve MCP tools over stdio")
}

func runServer() error {
	fmt.Fprintf(os.Stderr, "overbot version %s\n", version)

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logLevel := slog.LevelInfo
	if strings.EqualFold(cfg.Log.Level, "debug") {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := storage.Open(cfg.Storage.DataDir)
	if err != nil {
		return fmt.Errorf("opening storage: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "warning: closing storage: %v\n", err)
		}
	}()

	// Wire the conversation pipeline.
	llmClient := llm.New(cfg.LLM.BaseURL, cfg.LLM.APIKey, cfg.LLM.Model)
	catalogClient := catalog.New(cfg.Catalog.BaseURL, time.Duration(cfg.Catalog.TimeoutSeconds)*time.Second)

	buildCfg := build.DefaultConfig()
	buildCfg.BudgetTolerance = cfg.Chat.BudgetTolerance

	ranker := selector.New(llmClient)
	assembler := build.NewAssembler(buildCfg, catalogClient, build.NewPicker(llmClient), ranker)

	bot := orchestrator.New(orchestrator.Deps{
		Store:         store,
		Audit:         audit.NewSink(store, logger),
		Classifier:    intent.NewClassifier(llmClient),
		Catalog:       catalogClient,
		Ranker:        ranker,
		Builder:       assembler,
		Responder:     respond.NewGenerator(llmClient),
		FAQ:           faq.Default(),
		HistoryWindow: cfg.Chat.HistoryWindow,
		Logger:        logger,
	})

	handler := api.NewHandler(api.Deps{
		Bot:        bot,
		Store:      store,
		Catalog:    catalogClient,
		Audit:      audit.NewSink(store, logger),
		AgentToken: cfg.Server.AgentToken,
	})

	addr := fmt.Sprintf("127.0.0.1:%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: handler,
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		fmt.Fprintf(os.Stderr, "overbot listening on %s\n", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	if mcpEnabled {
		mcpSrv := api.NewMCPServer(api.MCPDeps{
			Bot:     bot,
			Catalog: catalogClient,
		})
		stdioSrv := server.NewStdioServer(mcpSrv)
		g.Go(func() error {
			slog.Info("MCP server started (stdio transport)")
			if err := stdioSrv.Listen(ctx, os.Stdin, os.Stdout); err != nil && !errors.Is(err, context.Canceled) {
				return fmt.Errorf("mcp stdio server: %w", err)
			}
			return nil
		})
	}

	g.Go(func() error {
		<-ctx.Done()
		fmt.Fprintln(os.Stderr, "shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

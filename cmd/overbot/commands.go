package main

import (
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/overtech/overbot/internal/config"
	"github.com/overtech/overbot/internal/orchestrator"
)

// --- status ---

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show overbot server status",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			printError("config error: %v", err)
			return nil
		}

		client := &http.Client{Timeout: 2 * time.Second}
		resp, err := client.Get(fmt.Sprintf("http://127.0.0.1:%d/health", cfg.Server.Port))
		if err != nil {
			printStatus("Server", "stopped")
		} else {
			resp.Body.Close()
			if resp.StatusCode == 200 {
				printStatus("Server", "running on port %d", cfg.Server.Port)
			} else {
				printStatus("Server", "error (HTTP %d)", resp.StatusCode)
			}
		}

		printStatus("Catalog", "%s", cfg.Catalog.BaseURL)
		printStatus("Model", "%s", cfg.LLM.Model)
		printStatus("Data dir", "%s", cfg.Storage.DataDir)
		return nil
	},
}

// --- chat ---

var chatSessionID string

var chatCmd = &cobra.Command{
	Use:   "chat <message>",
	Short: "Send a message to a running overbot server",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.post(cmd.Context(), "/api/chat", map[string]string{
			"message":    args[0],
			"session_id": chatSessionID,
		})
		if err != nil {
			return err
		}

		var result orchestrator.Result
		if err := decodeJSON(resp, &result); err != nil {
			return err
		}

		fmt.Println(result.Response)
		if len(result.Products) > 0 {
			printStep("%d product(s) attached", len(result.Products))
		}
		printStatus("Session", "%s", result.SessionID)
		return nil
	},
}

func init() {
	chatCmd.Flags().StringVar(&chatSessionID, "session", "", "session identifier to continue a conversation")
}

// --- config ---

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}

		for _, k := range config.ShowAll(cfg) {
			printStatus(k.Key, "%s", k.Value)
		}
		return nil
	},
}

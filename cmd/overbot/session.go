package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Manage chat sessions (agent side)",
}

var sessionHistoryCmd = &cobra.Command{
	Use:   "history <session-id>",
	Short: "Print the message history of a session",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.get(cmd.Context(), "/api/chat/"+args[0]+"/history")
		if err != nil {
			return err
		}

		var body struct {
			Status   string `json:"status"`
			Manager  string `json:"manager"`
			Messages []struct {
				Body      string `json:"body"`
				Sender    string `json:"sender"`
				CreatedAt string `json:"created_at"`
			} `json:"messages"`
		}
		if err := decodeJSON(resp, &body); err != nil {
			return err
		}

		printStatus("Status", "%s", body.Status)
		if body.Manager != "" {
			printStatus("Manager", "%s", body.Manager)
		}
		for _, m := range body.Messages {
			fmt.Printf("[%s] %s: %s\n", m.CreatedAt, m.Sender, m.Body)
		}
		return nil
	},
}

var claimManager string

var sessionClaimCmd = &cobra.Command{
	Use:   "claim <session-id>",
	Short: "Claim a pending session as a manager",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.post(cmd.Context(), "/api/agent/sessions/"+args[0]+"/claim",
			map[string]string{"manager": claimManager})
		if err != nil {
			return err
		}

		var result map[string]any
		if err := decodeJSON(resp, &result); err != nil {
			return err
		}

		printSuccess("Session %s claimed by %s", args[0], claimManager)
		return nil
	},
}

var sessionReplyCmd = &cobra.Command{
	Use:   "reply <session-id> <message>",
	Short: "Post a manager reply into a claimed session",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.post(cmd.Context(), "/api/agent/sessions/"+args[0]+"/message",
			map[string]string{"message": args[1]})
		if err != nil {
			return err
		}

		var result map[string]any
		if err := decodeJSON(resp, &result); err != nil {
			return err
		}

		printSuccess("Reply sent")
		return nil
	},
}

var sessionCloseCmd = &cobra.Command{
	Use:   "close <session-id>",
	Short: "Close a session",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.post(cmd.Context(), "/api/agent/sessions/"+args[0]+"/close", map[string]string{})
		if err != nil {
			return err
		}

		var result map[string]any
		if err := decodeJSON(resp, &result); err != nil {
			return err
		}

		printSuccess("Session %s closed", args[0])
		return nil
	},
}

func init() {
	sessionClaimCmd.Flags().StringVar(&claimManager, "manager", "", "manager identity")
	sessionClaimCmd.MarkFlagRequired("manager")

	sessionCmd.AddCommand(sessionHistoryCmd)
	sessionCmd.AddCommand(sessionClaimCmd)
	sessionCmd.AddCommand(sessionReplyCmd)
	sessionCmd.AddCommand(sessionCloseCmd)
}

package main

import (
	"encoding/json"
	"errors"

	"github.com/spf13/cobra"
)

var historyCmd = &cobra.Command{
	Use:   "history <session-id>",
	Short: "Print the latest interactions of a session from the NATS stream",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")

		a, err := openApp(cmd.Context(), cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		reader := a.Interactions()
		if reader == nil {
			return errors.New("interaction stream is not enabled, set JOURNAL_NATS=true")
		}

		entries, err := reader.Interactions(cmd.Context(), args[0], limit)
		if err != nil {
			return err
		}

		enc := json.NewEncoder(cmd.OutOrStdout())
		for i := range entries {
			if err := enc.Encode(&entries[i]); err != nil {
				return err
			}
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(historyCmd)

	historyCmd.Flags().Int("limit", 100, "Number of most recent interactions to print")
}

package main

import (
	"github.com/spf13/cobra"

	"github.com/capitalize-ai/educhat/internal/cli"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Start an interactive tutoring session",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd.Context(), cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		return cli.RunChat(cmd.Context(), cmd.InOrStdin(), cmd.OutOrStdout(), a.Chat)
	},
}

func init() {
	rootCmd.AddCommand(chatCmd)
}

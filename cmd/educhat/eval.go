package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/capitalize-ai/educhat/internal/cli"
	"github.com/capitalize-ai/educhat/internal/tutor"
)

var evalCmd = &cobra.Command{
	Use:   "eval",
	Short: "Compare answers under low and high temperature settings",
	RunE: func(cmd *cobra.Command, args []string) error {
		out, _ := cmd.Flags().GetString("out")

		a, err := openApp(cmd.Context(), cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		e := &cli.Evaluator{
			NewRunner: func(opts tutor.Options) cli.TurnRunner { return a.Machine(opts) },
			Base:      a.TutorOptions(),
			OutDir:    out,
			Logger:    a.Logger,
		}
		paths, err := e.Run(cmd.Context(), cli.DefaultEvalConfigs())
		if err != nil {
			return err
		}

		for _, p := range paths {
			fmt.Fprintln(cmd.OutOrStdout(), p)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(evalCmd)

	evalCmd.Flags().String("out", "logs/eval", "Directory for the results files")
}

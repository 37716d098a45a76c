package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Build the course index from plain text files",
	Long:  `Reads every .txt file under --dir, splits it into chunks and rebuilds the vector index.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		dir, _ := cmd.Flags().GetString("dir")

		a, err := openApp(cmd.Context(), cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		builder, err := a.Builder()
		if err != nil {
			return err
		}

		stats, err := builder.Build(cmd.Context(), dir)
		if err != nil {
			return err
		}

		a.Logger.Info("index built",
			zap.String("dir", dir),
			zap.Int("files", stats.Files),
			zap.Int("skipped", stats.Skipped),
			zap.Int("chunks", stats.Chunks))
		fmt.Fprintf(cmd.OutOrStdout(), "Indexed %d chunks from %d files into %s\n", stats.Chunks, stats.Files, a.Config.IndexDir)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(indexCmd)

	indexCmd.Flags().String("dir", "data/raw", "Directory containing the course material")
}

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"chemi/internal/embedding/bm25"
	"chemi/internal/embedding/gemini"
	"chemi/internal/ingest"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Build the vector collection from the compound catalog",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		key, err := geminiKey()
		if err != nil {
			return err
		}

		cat, err := openCatalog()
		if err != nil {
			return err
		}
		defer cat.Close()
		records, err := cat.All()
		if err != nil {
			return err
		}

		embedder, err := gemini.NewEmbedder(ctx, key, cfg.Gemini.EmbedModel, geminiTimeout())
		if err != nil {
			return err
		}
		store, err := buildStore()
		if err != nil {
			return err
		}
		defer store.Close()

		count, err := ingest.New(embedder, bm25.NewEncoder(), store, logger).Run(ctx, records)
		if err != nil {
			return err
		}
		fmt.Printf("Indexed %d records\n", count)
		return nil
	},
}

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"chemi/internal/assets"
	"chemi/internal/catalog"
)

var verifyClear bool

var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Check that every asset URL in the catalog resolves",
	RunE: func(cmd *cobra.Command, args []string) error {
		records, err := catalog.LoadJSON(cfg.Data.CatalogFile)
		if err != nil {
			return err
		}
		rep, err := assets.NewVerifier(nil, logger).Run(cmd.Context(), records)
		if err != nil {
			return err
		}
		fmt.Printf("Checked %d URLs: %d ok, %d missing\n", rep.Checked, rep.OK, len(rep.Missing))
		for _, u := range rep.Missing {
			fmt.Println("  missing:", u)
		}
		if len(rep.Missing) == 0 {
			return nil
		}
		if !verifyClear {
			return fmt.Errorf("%d assets missing", len(rep.Missing))
		}
		n := assets.Clear(records, rep.Missing)
		if err := catalog.SaveJSON(cfg.Data.CatalogFile, records); err != nil {
			return err
		}
		fmt.Printf("Cleared %d dead references in %s\n", n, cfg.Data.CatalogFile)
		return nil
	},
}

func init() {
	verifyCmd.Flags().BoolVar(&verifyClear, "clear", false,
		"remove dead asset references from the catalog file")
}

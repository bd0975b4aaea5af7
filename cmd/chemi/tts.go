package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"chemi/internal/catalog"
	"chemi/internal/tts"
)

var ttsCmd = &cobra.Command{
	Use:   "tts",
	Short: "Pre-generate pronunciation audio for every catalog record",
	RunE: func(cmd *cobra.Command, args []string) error {
		records, err := catalog.LoadJSON(cfg.Data.CatalogFile)
		if err != nil {
			return err
		}
		piper, err := tts.NewPiper(cfg.TTS.PiperBin, cfg.TTS.VoiceModel, cfg.TTS.OutputDir,
			time.Duration(cfg.TTS.TimeoutSecs)*time.Second, logger)
		if err != nil {
			return err
		}
		sum, err := piper.Pregenerate(cmd.Context(), records, cfg.Data.AudioDir)
		if err != nil {
			return err
		}
		fmt.Printf("Generated %d, skipped %d, failed %d\n", sum.Generated, sum.Skipped, sum.Failed)
		if sum.Failed > 0 {
			return fmt.Errorf("%d records failed", sum.Failed)
		}
		return nil
	},
}

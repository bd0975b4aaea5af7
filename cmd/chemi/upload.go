package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"chemi/internal/assets"
)

var uploadOut string

var uploadCmd = &cobra.Command{
	Use:   "upload",
	Short: "Upload images and audio to S3 and rewrite catalog paths to URLs",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		up, err := assets.NewUploader(ctx, cfg.Assets.Bucket, cfg.Assets.Region, logger)
		if err != nil {
			return err
		}

		nImages, err := up.UploadDir(ctx, cfg.Data.ImagesDir, "images")
		if err != nil {
			return fmt.Errorf("upload images: %w", err)
		}
		nAudio, err := up.UploadDir(ctx, cfg.Data.AudioDir, "audio")
		if err != nil {
			return fmt.Errorf("upload audio: %w", err)
		}

		out := uploadOut
		if out == "" {
			out = cfg.Data.CatalogFile
		}
		if err := up.RewriteCatalog(cfg.Data.CatalogFile, out); err != nil {
			return err
		}
		fmt.Printf("Uploaded %d images, %d audio files; catalog written to %s\n", nImages, nAudio, out)
		return nil
	},
}

func init() {
	uploadCmd.Flags().StringVar(&uploadOut, "out", "", "write the rewritten catalog here instead of overwriting the input")
}

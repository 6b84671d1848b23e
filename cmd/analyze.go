package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ultradaoto/ProxMox-Social-sub001/internal/analyzer"
	"github.com/ultradaoto/ProxMox-Social-sub001/internal/observability"
	"github.com/ultradaoto/ProxMox-Social-sub001/internal/profilestore"
	"github.com/ultradaoto/ProxMox-Social-sub001/internal/session"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze <session-id>",
	Short: "Derive a behavioral profile from a recorded session",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		log := observability.GetLogger()

		blobs, closeBlobs, err := openBlobStore(ctx)
		if err != nil {
			return err
		}
		defer closeBlobs()

		sessions := session.New(blobs, log)
		sess, err := sessions.Get(ctx, args[0])
		if err != nil {
			return err
		}

		opts := analyzer.DefaultOptions()
		if cfg.Capture.PauseThreshold > 0 {
			opts.Segment.PauseThreshold = cfg.Capture.PauseThreshold
		}
		profile, err := analyzer.New(log, opts).Analyze(sess)
		if err != nil {
			return err
		}

		handle, err := profilestore.New(blobs, log).Save(ctx, profile)
		if err != nil {
			return err
		}
		log.Info("profile created",
			zap.String("handle", handle),
			zap.Int("movement_segments", profile.Pointer.SegmentCount),
			zap.Int("keys", profile.Keyboard.KeyCount),
		)
		fmt.Println(handle)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(analyzeCmd)
}

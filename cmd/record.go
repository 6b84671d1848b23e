package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ultradaoto/ProxMox-Social-sub001/api/schemas"
	"github.com/ultradaoto/ProxMox-Social-sub001/internal/capture"
	"github.com/ultradaoto/ProxMox-Social-sub001/internal/observability"
	"github.com/ultradaoto/ProxMox-Social-sub001/internal/session"
)

var (
	recordTask  string
	recordInput string
)

var recordCmd = &cobra.Command{
	Use:   "record",
	Short: "Record a session from a JSONL event stream",
	Long: `Reads InputEvents as line-delimited JSON from stdin (or --input) and
records them into a new session. The stream typically comes from an external
capture agent piping raw hardware events.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		log := observability.GetLogger()

		blobs, closeBlobs, err := openBlobStore(ctx)
		if err != nil {
			return err
		}
		defer closeBlobs()

		var in io.Reader = os.Stdin
		if recordInput != "" {
			f, err := os.Open(recordInput)
			if err != nil {
				return fmt.Errorf("open input: %w", err)
			}
			defer f.Close()
			in = f
		}

		sessions := session.New(blobs, log)
		id := sessions.Begin(recordTask)

		recorder := capture.NewRecorder(
			capture.NewJSONLSource(in),
			func(ev schemas.InputEvent) error { return sessions.Append(id, ev) },
			log,
			capture.Options{QueueSize: cfg.Capture.QueueSize},
		)
		if err := recorder.Start(ctx); err != nil {
			return err
		}
		// The JSONL source stops at EOF; wait for the full stream before
		// tearing down.
		recorder.Wait()
		if err := recorder.Stop(); err != nil {
			return err
		}
		if recorder.Lost() {
			log.Warn("capture source was lost before the stream ended")
		}

		sess, err := sessions.End(ctx, id)
		if err != nil {
			return err
		}
		log.Info("session recorded",
			zap.String("session_id", sess.ID),
			zap.Int("events", len(sess.Events)),
		)
		fmt.Println(sess.ID)
		return nil
	},
}

func init() {
	recordCmd.Flags().StringVarP(&recordTask, "task", "t", "", "task label for the session")
	recordCmd.Flags().StringVarP(&recordInput, "input", "i", "", "JSONL event file (default stdin)")
	rootCmd.AddCommand(recordCmd)
}

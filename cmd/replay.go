package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/chromedp/chromedp"
	jsoniter "github.com/json-iterator/go"
	"github.com/spf13/cobra"

	"github.com/ultradaoto/ProxMox-Social-sub001/api/schemas"
	"github.com/ultradaoto/ProxMox-Social-sub001/internal/browser"
	"github.com/ultradaoto/ProxMox-Social-sub001/internal/geom"
	"github.com/ultradaoto/ProxMox-Social-sub001/internal/observability"
	"github.com/ultradaoto/ProxMox-Social-sub001/internal/profilestore"
	"github.com/ultradaoto/ProxMox-Social-sub001/internal/replay"
	"github.com/ultradaoto/ProxMox-Social-sub001/internal/session"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

var (
	replaySession string
	replayActions string
	replayProfile string
	replaySpeed   float64
	replayURL     string
)

var replayCmd = &cobra.Command{
	Use:   "replay",
	Short: "Replay a recorded session or a synthesized action sequence",
	Long: `Replays either a recorded session's event log (--session) or an action
file of logical steps (--actions, JSON array of move_to/click/type_text)
expanded through the profile. Events go to a live browser when --url is set,
otherwise to stdout as JSONL.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		log := observability.GetLogger()

		if (replaySession == "") == (replayActions == "") {
			return fmt.Errorf("exactly one of --session or --actions is required")
		}

		blobs, closeBlobs, err := openBlobStore(ctx)
		if err != nil {
			return err
		}
		defer closeBlobs()

		var profile *schemas.Profile
		if replayProfile != "" {
			p, err := profilestore.New(blobs, log).Load(ctx, replayProfile)
			if err != nil {
				return err
			}
			profile = &p
		}

		var events []schemas.InputEvent
		switch {
		case replaySession != "":
			sess, err := session.New(blobs, log).Get(ctx, replaySession)
			if err != nil {
				return err
			}
			events = sess.Events
		default:
			events, err = loadActionEvents(profile)
			if err != nil {
				return err
			}
		}

		sink, sinkCtx, cleanup, err := buildSink(ctx)
		if err != nil {
			return err
		}
		defer cleanup()

		speed := replaySpeed
		if speed <= 0 {
			speed = cfg.Replay.Speed
		}
		return replay.NewEngine(log, replay.DefaultOptions()).
			Replay(sinkCtx, events, profile, speed, sink)
	},
}

// loadActionEvents expands an action file through the profile (or the
// documented defaults when none was given).
func loadActionEvents(profile *schemas.Profile) ([]schemas.InputEvent, error) {
	data, err := os.ReadFile(replayActions)
	if err != nil {
		return nil, fmt.Errorf("read actions: %w", err)
	}
	var actions []replay.Action
	if err := json.Unmarshal(data, &actions); err != nil {
		return nil, fmt.Errorf("decode actions: %w", err)
	}

	p := schemas.Profile{
		SchemaVersion: schemas.ProfileSchemaVersion,
		Pointer:       schemas.DefaultPointerProfile(),
		Keyboard:      schemas.DefaultKeyboardProfile(),
	}
	if profile != nil {
		p = *profile
	}
	synth := replay.NewSynthesizer(p, geom.Vec{}, time.Now().UnixNano())
	return synth.Synthesize(actions)
}

// buildSink routes events at a browser when a target URL is configured,
// otherwise at stdout as JSONL.
func buildSink(ctx context.Context) (replay.Sink, context.Context, func(), error) {
	url := replayURL
	if url == "" {
		url = cfg.Replay.TargetURL
	}
	if url == "" {
		sink := replay.SinkFunc(func(_ context.Context, ev schemas.InputEvent) error {
			line, err := json.Marshal(ev)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(os.Stdout, string(line))
			return err
		})
		return sink, ctx, func() {}, nil
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, chromedp.DefaultExecAllocatorOptions[:]...)
	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)
	cleanup := func() {
		cancelBrowser()
		cancelAlloc()
	}
	if err := browser.Navigate(browserCtx, url); err != nil {
		cleanup()
		return nil, nil, nil, err
	}
	return browser.NewCDPSink(observability.GetLogger()), browserCtx, cleanup, nil
}

func init() {
	replayCmd.Flags().StringVarP(&replaySession, "session", "s", "", "session id to replay")
	replayCmd.Flags().StringVarP(&replayActions, "actions", "a", "", "action file to synthesize and replay")
	replayCmd.Flags().StringVarP(&replayProfile, "profile", "p", "", "profile handle for timing transforms")
	replayCmd.Flags().Float64VarP(&replaySpeed, "speed", "x", 0, "speed multiplier (default from config)")
	replayCmd.Flags().StringVarP(&replayURL, "url", "u", "", "replay into a browser at this URL via CDP")
	rootCmd.AddCommand(replayCmd)
}

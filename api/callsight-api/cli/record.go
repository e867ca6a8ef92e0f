// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

package cli

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	callsight_app "github.com/callsightai/api/callsight-api/app"
	internal_type "github.com/callsightai/api/callsight-api/internal/type"
	"github.com/spf13/cobra"
)

type recordOptions struct {
	mode       string
	mic        string
	micOnly    bool
	feature    string
	prompt     string
	recipients []string
	duration   time.Duration
	live       bool
}

func NewRecordCmd(deps *Dependencies) *cobra.Command {
	opts := &recordOptions{}
	cmd := &cobra.Command{
		Use:   "record",
		Short: "Record a call and transcribe it",
		Long: "Records the microphone mixed with system audio.\n" +
			"While recording type p + Enter to pause, r + Enter to resume and Enter (or Ctrl+C) to stop.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRecord(cmd.Context(), deps, opts, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVarP(&opts.mode, "mode", "m", "", "transcription mode: whole-file or chunked (default from RECORDER__MODE)")
	cmd.Flags().StringVar(&opts.mic, "mic", "", "microphone device id (see 'devices')")
	cmd.Flags().BoolVar(&opts.micOnly, "mic-only", false, "allow recording without system audio")
	cmd.Flags().StringVarP(&opts.feature, "feature", "f", "", "analysis feature to run after transcription")
	cmd.Flags().StringVar(&opts.prompt, "prompt", "", "override the feature prompt")
	cmd.Flags().StringSliceVar(&opts.recipients, "to", nil, "email recipients passed to the analysis")
	cmd.Flags().DurationVarP(&opts.duration, "duration", "d", 0, "stop automatically after this long")
	cmd.Flags().BoolVar(&opts.live, "live", false, "stream live captions while recording (chunked mode)")
	return cmd
}

func runRecord(ctx context.Context, deps *Dependencies, opts *recordOptions, in io.Reader, out io.Writer) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	application, err := deps.OpenApp(ctx)
	if err != nil {
		return err
	}
	defer application.Close()

	devices, err := deps.OpenDevices()
	if err != nil {
		return err
	}
	defer devices.Close()

	mode := internal_type.TranscriptionMode(opts.mode)
	if opts.mode != "" && !mode.Valid() {
		return fmt.Errorf("unknown mode %q", opts.mode)
	}
	if opts.feature != "" {
		if _, ok := application.Registry.Lookup(opts.feature); !ok {
			return fmt.Errorf("%w: %q", internal_type.ErrUnknownFeature, opts.feature)
		}
	}

	session := application.NewRecordingSession(devices, callsight_app.SessionOptions{
		Mode:          mode,
		MicDeviceID:   opts.mic,
		AllowMicOnly:  opts.micOnly,
		FeatureID:     opts.feature,
		FeaturePrompt: opts.prompt,
		Recipients:    opts.recipients,
		LiveCaptions:  opts.live || deps.Config.Recorder.LiveCaptions,
		OnTick: func(elapsed int) {
			fmt.Fprintf(out, "\r● recording %s", formatElapsed(elapsed))
		},
		OnTranscript: func(e internal_type.TranscriptEvent) {
			if e.Source == internal_type.SourceLive && !e.Final {
				return
			}
			fmt.Fprintf(out, "\r[%s] %s\n", e.Source, e.Text)
		},
		BeforeSystemAudio: func() {
			fmt.Fprintln(out, "capturing system audio from the default output device")
		},
	})

	if err := session.Start(ctx); err != nil {
		if errors.Is(err, internal_type.ErrSystemAudioRequired) {
			return fmt.Errorf("%w; enable a loopback/monitor device or pass --mic-only", err)
		}
		return err
	}
	fmt.Fprintf(out, "recording (%s mode). p=pause r=resume Enter=stop\n", session.Mode())

	waitForStop(ctx, session, opts.duration, in, out)

	fmt.Fprintln(out, "\nstopping, transcribing...")
	result, err := session.Stop(context.Background())
	if result != nil {
		fmt.Fprintf(out, "session %s: %s recorded\n", result.SessionID, result.Recording.Duration.Round(time.Second))
		if result.Transcript != "" {
			fmt.Fprintf(out, "\ntranscript:\n%s\n", result.Transcript)
		}
		if len(result.Analysis) > 0 {
			fmt.Fprintf(out, "\n%s:\n%s\n", opts.feature, indentJSON(result.Analysis))
		}
	}
	return err
}

// waitForStop blocks until the user asks to stop, the duration passes or
// ctx ends. Pause and resume commands are applied as they arrive.
func waitForStop(ctx context.Context, session *callsight_app.RecordingSession, duration time.Duration, in io.Reader, out io.Writer) {
	commands := make(chan string)
	go func() {
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case commands <- strings.ToLower(strings.TrimSpace(scanner.Text())):
			case <-ctx.Done():
				return
			}
		}
		close(commands)
	}()

	var deadline <-chan time.Time
	if duration > 0 {
		timer := time.NewTimer(duration)
		defer timer.Stop()
		deadline = timer.C
	}
	for {
		select {
		case <-ctx.Done():
			return
		case <-deadline:
			return
		case command, ok := <-commands:
			if !ok {
				// stdin closed: stop now unless a duration was given
				commands = nil
				if deadline == nil {
					return
				}
				continue
			}
			switch command {
			case "p", "pause":
				if session.Pause() {
					fmt.Fprintf(out, "\r⏸ paused at %s\n", formatElapsed(session.Elapsed()))
				}
			case "r", "resume":
				if session.Resume() {
					fmt.Fprintln(out, "\r▶ resumed")
				}
			case "", "q", "s", "stop":
				return
			}
		}
	}
}

func formatElapsed(seconds int) string {
	return fmt.Sprintf("%02d:%02d", seconds/60, seconds%60)
}

func indentJSON(raw json.RawMessage) string {
	var v interface{}
	if err := json.Unmarshal(raw, &v); err != nil {
		return string(raw)
	}
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return string(raw)
	}
	return string(b)
}

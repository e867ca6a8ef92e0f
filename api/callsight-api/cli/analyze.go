// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

package cli

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	internal_analysis "github.com/callsightai/api/callsight-api/internal/analysis"
	"github.com/spf13/cobra"
)

func NewAnalyzeCmd(deps *Dependencies) *cobra.Command {
	var (
		feature        string
		prompt         string
		transcriptFile string
		sessionID      string
		recipients     []string
	)
	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Run an analysis feature over a transcript",
		Long:  "Sends a transcript (from a stored session or a file) to the proxy's analyze endpoint and prints the result. With --session the result is stored on the session.",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			application, err := deps.OpenApp(ctx)
			if err != nil {
				return err
			}
			defer application.Close()

			var transcript string
			switch {
			case sessionID != "":
				s, err := application.Sessions.Get(ctx, sessionID)
				if err != nil {
					return err
				}
				transcript = s.Transcript
			case transcriptFile == "-":
				b, err := io.ReadAll(cmd.InOrStdin())
				if err != nil {
					return err
				}
				transcript = string(b)
			case transcriptFile != "":
				b, err := os.ReadFile(transcriptFile)
				if err != nil {
					return err
				}
				transcript = string(b)
			}

			result, err := application.Dispatcher.Analyze(ctx, internal_analysis.Request{
				Transcript: transcript,
				FeatureID:  feature,
				Prompt:     prompt,
				Recipients: recipients,
			})
			application.Metrics.ObserveAnalysis(feature, err)
			if err != nil {
				return err
			}
			if sessionID != "" {
				if err := application.Sessions.AttachAnalysis(ctx, sessionID, feature, string(result)); err != nil {
					return err
				}
			}
			fmt.Fprintln(cmd.OutOrStdout(), indentJSON(result))
			return nil
		},
	}
	cmd.Flags().StringVarP(&feature, "feature", "f", "summarize", "feature id (see 'features')")
	cmd.Flags().StringVar(&prompt, "prompt", "", "override the feature prompt (the address for tax-finder)")
	cmd.Flags().StringVarP(&transcriptFile, "transcript", "t", "", "transcript file, - for stdin")
	cmd.Flags().StringVarP(&sessionID, "session", "s", "", "use the transcript of a stored session")
	cmd.Flags().StringSliceVar(&recipients, "to", nil, "email recipients")
	cmd.MarkFlagsMutuallyExclusive("transcript", "session")
	return cmd
}

func NewFeaturesCmd(deps *Dependencies) *cobra.Command {
	return &cobra.Command{
		Use:   "features",
		Short: "List analysis features",
		RunE: func(cmd *cobra.Command, args []string) error {
			registry, err := internal_analysis.LoadRegistry(deps.Config.FeaturesFile)
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tTITLE\tAGENT\tINPUT")
			for _, f := range registry.Features() {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", f.ID, f.Title, f.Agent, f.Input)
			}
			return w.Flush()
		},
	}
}

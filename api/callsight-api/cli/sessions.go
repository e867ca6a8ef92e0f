// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

package cli

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

func NewSessionsCmd(deps *Dependencies) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "sessions [id]",
		Short: "List recorded sessions, newest first, or show one",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			application, err := deps.OpenApp(cmd.Context())
			if err != nil {
				return err
			}
			defer application.Close()
			out := cmd.OutOrStdout()

			if len(args) == 1 {
				s, err := application.Sessions.Get(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "id:        %s\n", s.ID)
				fmt.Fprintf(out, "recorded:  %s\n", s.CreatedDate.Local().Format(time.RFC1123))
				fmt.Fprintf(out, "mode:      %s\n", s.Mode)
				fmt.Fprintf(out, "duration:  %s\n", time.Duration(s.DurationSeconds*float64(time.Second)).Round(time.Second))
				fmt.Fprintf(out, "status:    %s\n", s.Status)
				if s.Error != "" {
					fmt.Fprintf(out, "error:     %s\n", s.Error)
				}
				if s.Transcript != "" {
					fmt.Fprintf(out, "\ntranscript:\n%s\n", s.Transcript)
				}
				if s.Analysis != "" {
					fmt.Fprintf(out, "\n%s:\n%s\n", s.FeatureID, indentJSON([]byte(s.Analysis)))
				}
				return nil
			}

			sessions, err := application.Sessions.List(cmd.Context(), limit)
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tRECORDED\tMODE\tDURATION\tSTATUS\tFEATURE")
			for _, s := range sessions {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
					s.ID,
					s.CreatedDate.Local().Format("2006-01-02 15:04"),
					s.Mode,
					formatElapsed(int(s.DurationSeconds)),
					s.Status,
					s.FeatureID,
				)
			}
			return w.Flush()
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "number of sessions to list (0 for all)")
	return cmd
}

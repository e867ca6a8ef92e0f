// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func NewDevicesCmd(deps *Dependencies) *cobra.Command {
	var mic string
	cmd := &cobra.Command{
		Use:   "devices",
		Short: "List audio capture devices",
		RunE: func(cmd *cobra.Command, args []string) error {
			backend, err := deps.OpenDevices()
			if err != nil {
				return err
			}
			defer backend.Close()

			devices, err := backend.ListDevices()
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tKIND\tNAME\tSELECTED")
			found := mic == ""
			for _, d := range devices {
				selected := ""
				switch {
				case mic != "" && d.ID == mic:
					selected = "*"
					found = true
				case mic == "" && d.IsDefault:
					selected = "*"
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", d.ID, d.Kind, d.Name, selected)
			}
			if err := w.Flush(); err != nil {
				return err
			}
			if !found {
				return fmt.Errorf("microphone %q not found", mic)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&mic, "mic", "", "mark and verify this device id")
	return cmd
}

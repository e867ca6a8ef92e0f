// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

package cli

import (
	"context"

	callsight_app "github.com/callsightai/api/callsight-api/app"
	"github.com/callsightai/api/callsight-api/config"
	internal_capture "github.com/callsightai/api/callsight-api/internal/capture"
	"github.com/callsightai/pkg/commons"
	"github.com/spf13/cobra"
)

// Dependencies are opened lazily so commands that need no database or audio
// device do not pay for them.
type Dependencies struct {
	Config      *config.AppConfig
	Logger      commons.Logger
	OpenApp     func(ctx context.Context) (*callsight_app.App, error)
	OpenDevices func() (internal_capture.Backend, error)
}

func NewDependencies(cfg *config.AppConfig, logger commons.Logger) *Dependencies {
	return &Dependencies{
		Config: cfg,
		Logger: logger,
		OpenApp: func(ctx context.Context) (*callsight_app.App, error) {
			return callsight_app.New(ctx, cfg, logger)
		},
		OpenDevices: func() (internal_capture.Backend, error) {
			return internal_capture.NewMalgoDevices(logger)
		},
	}
}

func NewRootCmd(deps *Dependencies) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "callsight",
		Short:         "Record calls, transcribe them and run analysis",
		Long:          "Records microphone and system audio, transcribes the call in chunks or as one file, and runs analysis agents over the transcript. 'serve' runs the proxy used by browser clients.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.Version = deps.Config.Version

	rootCmd.AddCommand(NewServeCmd(deps))
	rootCmd.AddCommand(NewRecordCmd(deps))
	rootCmd.AddCommand(NewDevicesCmd(deps))
	rootCmd.AddCommand(NewSessionsCmd(deps))
	rootCmd.AddCommand(NewAnalyzeCmd(deps))
	rootCmd.AddCommand(NewFeaturesCmd(deps))
	rootCmd.AddCommand(NewDoctorCmd(deps))
	return rootCmd
}

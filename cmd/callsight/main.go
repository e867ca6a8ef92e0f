// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

package main

import (
	"fmt"
	"os"

	"github.com/callsightai/api/callsight-api/cli"
	"github.com/callsightai/api/callsight-api/config"
	"github.com/callsightai/pkg/commons"
	"github.com/callsightai/pkg/utils"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	vConfig, err := config.InitConfig()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	cfg, err := config.GetApplicationConfig(vConfig)
	if err != nil {
		return err
	}

	logger, err := commons.NewApplicationLogger(
		commons.Name(cfg.Name),
		commons.Path(cfg.LogPath),
		commons.Level(cfg.LogLevel),
		commons.Console(!utils.FromEnvironmentStr(cfg.Env).IsProduction() || cfg.LogPath == ""),
	)
	if err != nil {
		return fmt.Errorf("initializing logger: %w", err)
	}
	defer logger.Sync()

	return cli.NewRootCmd(cli.NewDependencies(cfg, logger)).Execute()
}

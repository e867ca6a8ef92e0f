// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

package cli

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	internal_capture "github.com/callsightai/api/callsight-api/internal/capture"
	internal_tokencache "github.com/callsightai/api/callsight-api/internal/tokencache"
	"github.com/callsightai/pkg/utils"
	"github.com/spf13/cobra"
)

func NewDoctorCmd(deps *Dependencies) *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check configuration, storage and audio prerequisites",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			cfg := deps.Config
			ok := true
			check := func(name string, passed bool, detail string) {
				mark := "✓"
				if !passed {
					mark = "✗"
					ok = false
				}
				fmt.Fprintf(out, "%s %-18s %s\n", mark, name, detail)
			}

			check("AssemblyAI key", !utils.IsEmpty(cfg.AssemblyAI.ApiKey), configured(cfg.AssemblyAI.ApiKey, "ASSEMBLYAI__API_KEY"))
			check("NeuralSeek key", !utils.IsEmpty(cfg.NeuralSeek.ApiKey), configured(cfg.NeuralSeek.ApiKey, "NEURALSEEK__API_KEY"))
			check("NeuralSeek url", !utils.IsEmpty(cfg.NeuralSeek.ApiURL), configured(cfg.NeuralSeek.ApiURL, "NEURALSEEK__API_URL"))
			check("Proxy url", !utils.IsEmpty(cfg.ProxyURL), cfg.ProxyURL)

			ctx, cancel := context.WithTimeout(cmd.Context(), 5*time.Second)
			defer cancel()
			if application, err := deps.OpenApp(ctx); err != nil {
				check("Database", false, err.Error())
			} else {
				err := application.Sessions.Ping(ctx)
				check("Database", err == nil, describe(err, cfg.Database.Driver))
				application.Close()
			}

			if !utils.IsEmpty(cfg.Redis.Addr) {
				client := internal_tokencache.NewRedisClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
				err := internal_tokencache.NewRedisCache(client, deps.Logger).Ping(ctx)
				check("Redis", err == nil, describe(err, cfg.Redis.Addr))
				_ = client.Close()
			} else {
				check("Redis", true, "not configured, tokens are not cached")
			}

			checkAudio(deps, out, check)

			if ok {
				fmt.Fprintln(out, "\nAll prerequisites met. Ready to record.")
			} else {
				fmt.Fprintln(out, "\nSome prerequisites are missing.")
			}
			return nil
		},
	}
}

func checkAudio(deps *Dependencies, out io.Writer, check func(string, bool, string)) {
	backend, err := deps.OpenDevices()
	if err != nil {
		check("Audio backend", false, err.Error())
		return
	}
	defer backend.Close()
	devices, err := backend.ListDevices()
	if err != nil {
		check("Audio backend", false, err.Error())
		return
	}
	var mics, loopback []string
	for _, d := range devices {
		if d.Kind == internal_capture.DeviceLoopback {
			loopback = append(loopback, d.Name)
		} else {
			mics = append(mics, d.Name)
		}
	}
	check("Microphone", len(mics) > 0, strings.Join(mics, ", "))
	check("System audio", len(loopback) > 0, strings.Join(loopback, ", "))
}

func configured(value, key string) string {
	if utils.IsEmpty(value) {
		return "not set, set " + key
	}
	return "configured"
}

func describe(err error, ok string) string {
	if err != nil {
		return err.Error()
	}
	return ok
}

// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

type AssemblyAIConfig struct {
	ApiKey       string `mapstructure:"api_key"`
	BaseURL      string `mapstructure:"base_url" validate:"omitempty,url"`
	StreamingURL string `mapstructure:"streaming_url" validate:"omitempty,url"`
	Language     string `mapstructure:"language"`
}

type NeuralSeekConfig struct {
	ApiKey string `mapstructure:"api_key"`
	ApiURL string `mapstructure:"api_url" validate:"omitempty,url"`
	Agent  string `mapstructure:"agent"`
}

type DatabaseConfig struct {
	Driver string `mapstructure:"driver" validate:"oneof=sqlite postgres"`
	DSN    string `mapstructure:"dsn"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db" validate:"gte=0"`
}

type RecorderConfig struct {
	SampleRate    uint32        `mapstructure:"sample_rate" validate:"required,gte=8000,lte=48000"`
	Mode          string        `mapstructure:"mode" validate:"oneof=whole-file chunked"`
	ChunkInterval time.Duration `mapstructure:"chunk_interval" validate:"required"`
	MinBatchBytes int           `mapstructure:"min_batch_bytes" validate:"gte=0"`
	PollInterval  time.Duration `mapstructure:"poll_interval" validate:"required"`
	PollAttempts  int           `mapstructure:"poll_attempts" validate:"required,gt=0"`
	LiveCaptions  bool          `mapstructure:"live_captions"`
}

// Application config structure
type AppConfig struct {
	Name         string   `mapstructure:"service_name" validate:"required"`
	Version      string   `mapstructure:"version" validate:"required"`
	Host         string   `mapstructure:"host" validate:"required"`
	Port         int      `mapstructure:"port" validate:"required,gt=0,lte=65535"`
	LogLevel     string   `mapstructure:"log_level" validate:"required,oneof=debug info warn error"`
	LogPath      string   `mapstructure:"log_path"`
	Env          string   `mapstructure:"env" validate:"required"`
	ProxyURL     string   `mapstructure:"proxy_url" validate:"required,url"`
	FeaturesFile string   `mapstructure:"features_file"`
	CorsOrigins  []string `mapstructure:"cors_origins"`

	AssemblyAI AssemblyAIConfig `mapstructure:"assemblyai"`
	NeuralSeek NeuralSeekConfig `mapstructure:"neuralseek"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Redis      RedisConfig      `mapstructure:"redis"`
	Recorder   RecorderConfig   `mapstructure:"recorder"`
}

func (c *AppConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// reading config and intializing configs for application
func InitConfig() (*viper.Viper, error) {
	vConfig := viper.NewWithOptions(viper.KeyDelimiter("__"))

	vConfig.AddConfigPath(".")
	vConfig.SetConfigName(".env")
	if path := os.Getenv("ENV_PATH"); path != "" {
		vConfig.SetConfigFile(path)
	}
	vConfig.SetConfigType("env")
	vConfig.AutomaticEnv()
	setDefault(vConfig)

	if err := vConfig.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !os.IsNotExist(err) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}
	return vConfig, nil
}

func setDefault(v *viper.Viper) {
	// every key needs a default so AutomaticEnv can bind it on Unmarshal
	v.SetDefault("SERVICE_NAME", "callsight-api")
	v.SetDefault("VERSION", "0.0.1")
	v.SetDefault("HOST", "0.0.0.0")
	v.SetDefault("PORT", 3001)
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_PATH", "")
	v.SetDefault("ENV", "development")
	v.SetDefault("PROXY_URL", "http://localhost:3001")
	v.SetDefault("FEATURES_FILE", "")
	v.SetDefault("CORS_ORIGINS", "*")

	v.SetDefault("ASSEMBLYAI__API_KEY", "")
	v.SetDefault("ASSEMBLYAI__BASE_URL", "https://api.assemblyai.com")
	v.SetDefault("ASSEMBLYAI__STREAMING_URL", "wss://streaming.assemblyai.com/v3/ws")
	v.SetDefault("ASSEMBLYAI__LANGUAGE", "")

	v.SetDefault("NEURALSEEK__API_KEY", "")
	v.SetDefault("NEURALSEEK__API_URL", "")
	v.SetDefault("NEURALSEEK__AGENT", "summarize_agent")

	v.SetDefault("DATABASE__DRIVER", "sqlite")
	v.SetDefault("DATABASE__DSN", "callsight.db")

	v.SetDefault("REDIS__ADDR", "")
	v.SetDefault("REDIS__PASSWORD", "")
	v.SetDefault("REDIS__DB", 0)

	v.SetDefault("RECORDER__SAMPLE_RATE", 16000)
	v.SetDefault("RECORDER__MODE", "whole-file")
	v.SetDefault("RECORDER__CHUNK_INTERVAL", "10s")
	v.SetDefault("RECORDER__MIN_BATCH_BYTES", 10000)
	v.SetDefault("RECORDER__POLL_INTERVAL", "1s")
	v.SetDefault("RECORDER__POLL_ATTEMPTS", 60)
	v.SetDefault("RECORDER__LIVE_CAPTIONS", false)
}

// Getting application config from viper
func GetApplicationConfig(v *viper.Viper) (*AppConfig, error) {
	var config AppConfig
	err := v.Unmarshal(&config, viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	)))
	if err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	validate := validator.New()
	if err := validate.Struct(&config); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &config, nil
}

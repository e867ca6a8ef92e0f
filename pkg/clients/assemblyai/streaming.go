// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.
package assemblyai

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/callsightai/pkg/utils"
)

const (
	DefaultStreamingURL = "wss://streaming.assemblyai.com/v3/ws"
	StreamingEncoding   = "pcm_s16le"
)

// StreamingOption describes one realtime captioning connection.
type StreamingOption struct {
	BaseURL    string
	SampleRate int
	Options    utils.Option
}

func NewStreamingOption(baseURL string, sampleRate int, opts utils.Option) *StreamingOption {
	if strings.TrimSpace(baseURL) == "" {
		baseURL = DefaultStreamingURL
	}
	if sampleRate <= 0 {
		sampleRate = 16000
	}
	if opts == nil {
		opts = utils.Option{}
	}
	return &StreamingOption{BaseURL: baseURL, SampleRate: sampleRate, Options: opts}
}

func (so *StreamingOption) GetEncoding() string {
	return StreamingEncoding
}

// ConnectionString builds the websocket url, authenticating with a
// temporary token when one is given.
func (so *StreamingOption) ConnectionString(token string) string {
	params := url.Values{}
	params.Add("sample_rate", fmt.Sprintf("%d", so.SampleRate))
	params.Add("encoding", so.GetEncoding())
	params.Add("format_turns", "true")
	if language, err := so.Options.GetString("listen.language"); err == nil {
		params.Add("language", language)
	}
	if model, err := so.Options.GetString("listen.model"); err == nil {
		params.Add("model", model)
	}
	if token != "" {
		params.Add("token", token)
	}
	return fmt.Sprintf("%s?%s", so.BaseURL, params.Encode())
}

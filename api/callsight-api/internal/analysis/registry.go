// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.
package internal_analysis

import (
	_ "embed"
	"fmt"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
)

//go:embed features.toml
var defaultFeatures string

type InputKind string

const (
	InputTranscript InputKind = "transcript"
	InputCSV        InputKind = "csv"
	InputAddress    InputKind = "address"
)

type Feature struct {
	ID     string    `toml:"id" json:"id"`
	Title  string    `toml:"title" json:"title"`
	Agent  string    `toml:"agent" json:"agent"`
	Prompt string    `toml:"prompt" json:"prompt"`
	Input  InputKind `toml:"input" json:"input"`
	// TranscriptOptional features work on other input and may be invoked
	// with an empty transcript.
	TranscriptOptional bool `toml:"transcript_optional" json:"transcriptOptional"`
}

type registryFile struct {
	Features []Feature `toml:"feature"`
}

type Registry struct {
	features map[string]Feature
}

// DefaultRegistry holds the built-in feature table.
func DefaultRegistry() *Registry {
	r := &Registry{features: map[string]Feature{}}
	var file registryFile
	if _, err := toml.Decode(defaultFeatures, &file); err != nil {
		panic(fmt.Sprintf("built-in feature table: %v", err))
	}
	r.merge(file.Features)
	return r
}

// LoadRegistry overlays the features in path on the built-in table.
// Features with a known id replace the built-in entry.
func LoadRegistry(path string) (*Registry, error) {
	r := DefaultRegistry()
	if strings.TrimSpace(path) == "" {
		return r, nil
	}
	var file registryFile
	if _, err := toml.DecodeFile(path, &file); err != nil {
		return nil, fmt.Errorf("load features %s: %w", path, err)
	}
	for _, f := range file.Features {
		if strings.TrimSpace(f.ID) == "" || strings.TrimSpace(f.Agent) == "" {
			return nil, fmt.Errorf("load features %s: feature needs id and agent", path)
		}
	}
	r.merge(file.Features)
	return r, nil
}

func (r *Registry) merge(features []Feature) {
	for _, f := range features {
		if f.Input == "" {
			f.Input = InputTranscript
		}
		r.features[f.ID] = f
	}
}

func (r *Registry) Lookup(id string) (Feature, bool) {
	f, ok := r.features[id]
	return f, ok
}

// Features lists every feature sorted by id.
func (r *Registry) Features() []Feature {
	out := make([]Feature, 0, len(r.features))
	for _, f := range r.features {
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// RequiresTranscript is false only for known transcript-optional features.
func (r *Registry) RequiresTranscript(id string) bool {
	f, ok := r.features[id]
	return !ok || !f.TranscriptOptional
}

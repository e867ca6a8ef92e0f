// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.
package internal_analysis

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultRegistry(t *testing.T) {
	r := DefaultRegistry()
	assert.Len(t, r.Features(), 11)

	f, ok := r.Lookup("summarize")
	require.True(t, ok)
	assert.Equal(t, "summarize_agent", f.Agent)
	assert.Equal(t, "Summarize this call transcript with key highlights and main points.", f.Prompt)
	assert.Equal(t, InputTranscript, f.Input)
	assert.False(t, f.TranscriptOptional)

	email, ok := r.Lookup("generate-email")
	require.True(t, ok)
	assert.Equal(t, "pehla_agent", email.Agent)

	for _, id := range []string{"pipeline-analyzer", "tax-finder"} {
		assert.False(t, r.RequiresTranscript(id), id)
	}
	assert.True(t, r.RequiresTranscript("pii-wipe"))
	assert.True(t, r.RequiresTranscript("does-not-exist"))

	_, ok = r.Lookup("does-not-exist")
	assert.False(t, ok)
}

func TestLoadRegistryOverlay(t *testing.T) {
	path := filepath.Join(t.TempDir(), "features.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
[[feature]]
id = "summarize"
title = "Short Summary"
agent = "short_agent"
prompt = "Two sentences."

[[feature]]
id = "churn-risk"
agent = "churn_agent"
prompt = "Rate churn risk."
`), 0o600))

	r, err := LoadRegistry(path)
	require.NoError(t, err)
	assert.Len(t, r.Features(), 12)

	f, _ := r.Lookup("summarize")
	assert.Equal(t, "short_agent", f.Agent)
	churn, ok := r.Lookup("churn-risk")
	require.True(t, ok)
	assert.Equal(t, InputTranscript, churn.Input)

	ids := []string{}
	for _, f := range r.Features() {
		ids = append(ids, f.ID)
	}
	assert.IsNonDecreasing(t, ids)
}

func TestLoadRegistryErrors(t *testing.T) {
	r, err := LoadRegistry("")
	require.NoError(t, err)
	assert.Len(t, r.Features(), 11)

	_, err = LoadRegistry(filepath.Join(t.TempDir(), "missing.toml"))
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "bad.toml")
	require.NoError(t, os.WriteFile(path, []byte("[[feature]]\nid = \"x\"\n"), 0o600))
	_, err = LoadRegistry(path)
	assert.ErrorContains(t, err, "needs id and agent")
}

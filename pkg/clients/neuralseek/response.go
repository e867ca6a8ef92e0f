// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.
package neuralseek

import (
	"encoding/json"
	"strings"
)

// CallAnalysis is the structured view of a maistro response.
type CallAnalysis struct {
	Summary      string        `json:"summary"`
	KeyPoints    []interface{} `json:"keyPoints"`
	ActionItems  []interface{} `json:"actionItems"`
	EmailBody    string        `json:"emailBody"`
	EmailSubject string        `json:"emailSubject,omitempty"`
	EmailTo      string        `json:"emailTo,omitempty"`
	Answer       string        `json:"answer,omitempty"`
}

type maistroResponse struct {
	Answer    string                 `json:"answer"`
	Variables map[string]interface{} `json:"variables"`
}

// ParseCallAnalysis extracts summary, key points, action items and the email
// body from the agent variables. callAnalysis may arrive as a JSON encoded
// string or as an object. Missing fields come back empty, never nil.
func ParseCallAnalysis(raw json.RawMessage) (*CallAnalysis, error) {
	var resp maistroResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, err
	}
	out := &CallAnalysis{
		KeyPoints:   []interface{}{},
		ActionItems: []interface{}{},
		Answer:      resp.Answer,
	}
	if v, ok := resp.Variables["callAnalysis"]; ok {
		var nested struct {
			Summary     string        `json:"summary"`
			KeyPoints   []interface{} `json:"keyPoints"`
			ActionItems []interface{} `json:"actionItems"`
		}
		var decodeErr error
		switch val := v.(type) {
		case string:
			decodeErr = json.Unmarshal([]byte(strings.TrimSpace(val)), &nested)
		default:
			b, _ := json.Marshal(val)
			decodeErr = json.Unmarshal(b, &nested)
		}
		if decodeErr == nil {
			out.Summary = nested.Summary
			if nested.KeyPoints != nil {
				out.KeyPoints = nested.KeyPoints
			}
			if nested.ActionItems != nil {
				out.ActionItems = nested.ActionItems
			}
		} else if s, ok := v.(string); ok {
			out.Summary = s
		}
	}
	if s, ok := resp.Variables["emailBody"].(string); ok {
		out.EmailBody = s
	}
	if s, ok := resp.Variables["emailSubject"].(string); ok {
		out.EmailSubject = s
	}
	if s, ok := resp.Variables["emailTo"].(string); ok {
		out.EmailTo = s
	}
	if out.Summary == "" && resp.Answer != "" {
		out.Summary = resp.Answer
	}
	return out, nil
}

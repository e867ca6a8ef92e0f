// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

package internal_callsession

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Session status constants.
const (
	StatusRecorded    = "recorded"    // audio captured, no transcript yet
	StatusTranscribed = "transcribed" // transcript stored
	StatusAnalyzed    = "analyzed"    // at least one analysis attached
	StatusFailed      = "failed"
)

// Session is one finished recording and what was derived from it.
type Session struct {
	ID              string    `json:"id" gorm:"column:id;type:varchar(36);primaryKey;<-:create"`
	Mode            string    `json:"mode" gorm:"column:mode;type:varchar(20);not null;default:''"`
	Status          string    `json:"status" gorm:"column:status;type:varchar(20);not null;default:recorded;index"`
	DurationSeconds float64   `json:"durationSeconds" gorm:"column:duration_seconds;not null;default:0"`
	AudioBytes      int64     `json:"audioBytes" gorm:"column:audio_bytes;not null;default:0"`
	SystemAudio     bool      `json:"systemAudio" gorm:"column:system_audio;not null;default:false"`
	Transcript      string    `json:"transcript" gorm:"column:transcript;type:text;not null;default:''"`
	FeatureID       string    `json:"featureId" gorm:"column:feature_id;type:varchar(64);not null;default:''"`
	Analysis        string    `json:"analysis" gorm:"column:analysis;type:text;not null;default:''"`
	Error           string    `json:"error,omitempty" gorm:"column:error;type:text;not null;default:''"`
	CreatedDate     time.Time `json:"createdDate" gorm:"column:created_date;not null;index;<-:create"`
	UpdatedDate     time.Time `json:"updatedDate" gorm:"column:updated_date"`
}

func (Session) TableName() string {
	return "call_sessions"
}

func (s *Session) BeforeCreate(tx *gorm.DB) error {
	if s.ID == "" {
		s.ID = uuid.New().String()
	}
	if s.CreatedDate.IsZero() {
		s.CreatedDate = time.Now()
	}
	if s.UpdatedDate.IsZero() {
		s.UpdatedDate = s.CreatedDate
	}
	if s.Status == "" {
		s.Status = StatusRecorded
	}
	return nil
}

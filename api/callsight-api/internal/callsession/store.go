// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

package internal_callsession

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/callsightai/pkg/commons"
	"gorm.io/gorm"
)

var ErrSessionNotFound = errors.New("call session not found")

// Store keeps the history of finished recordings.
type Store interface {
	// Save inserts the session, generating its id when empty.
	Save(ctx context.Context, s *Session) (string, error)
	Get(ctx context.Context, id string) (*Session, error)
	// List returns the newest sessions first. limit <= 0 returns all.
	List(ctx context.Context, limit int) ([]Session, error)
	SetTranscript(ctx context.Context, id, transcript string) error
	AttachAnalysis(ctx context.Context, id, featureID, analysis string) error
	MarkFailed(ctx context.Context, id string, cause error) error
	Ping(ctx context.Context) error
}

type gormStore struct {
	db     *gorm.DB
	logger commons.Logger
}

func NewStore(db *gorm.DB, logger commons.Logger) Store {
	return &gormStore{db: db, logger: logger}
}

func (s *gormStore) Save(ctx context.Context, session *Session) (string, error) {
	if err := s.db.WithContext(ctx).Create(session).Error; err != nil {
		return "", fmt.Errorf("failed to save call session %s: %w", session.ID, err)
	}
	s.logger.Infof("saved call session: id=%s, mode=%s, duration=%.1fs, bytes=%d",
		session.ID, session.Mode, session.DurationSeconds, session.AudioBytes)
	return session.ID, nil
}

func (s *gormStore) Get(ctx context.Context, id string) (*Session, error) {
	var session Session
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&session).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read call session %s: %w", id, err)
	}
	return &session, nil
}

func (s *gormStore) List(ctx context.Context, limit int) ([]Session, error) {
	q := s.db.WithContext(ctx).Order("created_date DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	var sessions []Session
	if err := q.Find(&sessions).Error; err != nil {
		return nil, fmt.Errorf("failed to list call sessions: %w", err)
	}
	return sessions, nil
}

func (s *gormStore) SetTranscript(ctx context.Context, id, transcript string) error {
	return s.update(ctx, id, map[string]interface{}{
		"transcript": transcript,
		"status":     StatusTranscribed,
	})
}

func (s *gormStore) AttachAnalysis(ctx context.Context, id, featureID, analysis string) error {
	return s.update(ctx, id, map[string]interface{}{
		"feature_id": featureID,
		"analysis":   analysis,
		"status":     StatusAnalyzed,
	})
}

func (s *gormStore) MarkFailed(ctx context.Context, id string, cause error) error {
	detail := ""
	if cause != nil {
		detail = cause.Error()
	}
	return s.update(ctx, id, map[string]interface{}{
		"status": StatusFailed,
		"error":  detail,
	})
}

func (s *gormStore) update(ctx context.Context, id string, fields map[string]interface{}) error {
	fields["updated_date"] = time.Now()
	result := s.db.WithContext(ctx).Model(&Session{}).Where("id = ?", id).Updates(fields)
	if result.Error != nil {
		return fmt.Errorf("failed to update call session %s: %w", id, result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	s.logger.Debugf("updated call session: id=%s, fields=%d", id, len(fields))
	return nil
}

func (s *gormStore) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

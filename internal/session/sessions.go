// Copyright 2025 Agentic World, LLC (Sherin Thomas)
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package session

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// CreateSession registers a new session and returns it. The generated ID is
// what callers pass to the rendering service as session_id.
func (s *Store) CreateSession(initialURL string, metadata map[string]string) (*Session, error) {
	now := time.Now().Unix()
	sess := Session{
		ID:         uuid.NewString(),
		InitialURL: initialURL,
		LastUsedAt: now,
	}
	if err := sess.SetMetadataMap(metadata); err != nil {
		return nil, fmt.Errorf("failed to encode session metadata: %v", err)
	}

	if err := s.db.Create(&sess).Error; err != nil {
		return nil, fmt.Errorf("failed to create session: %v", err)
	}
	return &sess, nil
}

// GetSession gets a session by ID. Returns nil without error when the
// session does not exist.
func (s *Store) GetSession(id string) (*Session, error) {
	var sess Session
	result := s.db.First(&sess, "id = ?", id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get session: %v", result.Error)
	}
	return &sess, nil
}

// TouchSession marks a session as just used
func (s *Store) TouchSession(id string) error {
	result := s.db.Model(&Session{}).Where("id = ?", id).Update("last_used_at", time.Now().Unix())
	if result.Error != nil {
		return fmt.Errorf("failed to touch session: %v", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("session not found: %s", id)
	}
	return nil
}

// DeleteSession removes a session by ID
func (s *Store) DeleteSession(id string) error {
	result := s.db.Delete(&Session{}, "id = ?", id)
	if result.Error != nil {
		return fmt.Errorf("failed to delete session: %v", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("session not found: %s", id)
	}
	return nil
}

// ListSessions returns all sessions, most recently used first
func (s *Store) ListSessions() ([]Session, error) {
	var sessions []Session
	result := s.db.Order("last_used_at DESC").Find(&sessions)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to list sessions: %v", result.Error)
	}
	return sessions, nil
}

// PruneSessions deletes sessions not used within the given window and
// returns how many were removed.
func (s *Store) PruneSessions(window time.Duration) (int64, error) {
	cutoff := time.Now().Add(-window).Unix()
	result := s.db.Where("last_used_at < ?", cutoff).Delete(&Session{})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to prune sessions: %v", result.Error)
	}
	return result.RowsAffected, nil
}

// SessionCount returns the number of stored sessions
func (s *Store) SessionCount() (int64, error) {
	var count int64
	if err := s.db.Model(&Session{}).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count sessions: %v", err)
	}
	return count, nil
}

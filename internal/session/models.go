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

import "encoding/json"

// Session represents a persistent browser session on the rendering service.
// The ID is handed to the service as session_id so consecutive fetches share
// cookies and page state.
type Session struct {
	ID         string `gorm:"primaryKey"`
	InitialURL string `gorm:"type:text"`
	Metadata   string `gorm:"type:text"` // JSON object, optional
	CreatedAt  int64  `gorm:"autoCreateTime"`
	LastUsedAt int64  `gorm:"index"`
}

// GetMetadataMap deserializes the Metadata JSON to a map
func (s *Session) GetMetadataMap() map[string]string {
	if s.Metadata == "" {
		return nil
	}
	var meta map[string]string
	if err := json.Unmarshal([]byte(s.Metadata), &meta); err != nil {
		return nil
	}
	return meta
}

// SetMetadataMap serializes a map to JSON for Metadata
func (s *Session) SetMetadataMap(meta map[string]string) error {
	if len(meta) == 0 {
		s.Metadata = ""
		return nil
	}
	data, err := json.Marshal(meta)
	if err != nil {
		return err
	}
	s.Metadata = string(data)
	return nil
}

// CrawlRecord is the stored summary of one completed recursive crawl
type CrawlRecord struct {
	ID              uint   `gorm:"primaryKey"`
	SeedURL         string `gorm:"index;not null"`
	Strategy        string
	PagesCrawled    int
	MaxDepthReached int
	MaxDepthLimit   int
	DurationMs      int64
	Status          string `gorm:"default:'completed'"` // "completed" or "failed"
	Error           string `gorm:"type:text"`
	CreatedAt       int64  `gorm:"autoCreateTime"`
}

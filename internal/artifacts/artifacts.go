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

// Package artifacts writes screenshots and PDFs captured by the rendering
// service to local files with URL-derived names.
package artifacts

import (
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/kennygrant/sanitize"
	"github.com/pdfcpu/pdfcpu/pkg/api"
)

// Artifact describes one saved file
type Artifact struct {
	Path string `json:"path"`
	Size int64  `json:"size"`
}

// Store writes artifacts into a single directory
type Store struct {
	dir string
}

// NewStore creates a store rooted at dir, creating it when needed. An empty
// dir selects ~/.vinesnake/artifacts.
func NewStore(dir string) (*Store, error) {
	if dir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get user home directory: %v", err)
		}
		dir = filepath.Join(homeDir, ".vinesnake", "artifacts")
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create artifact directory: %v", err)
	}
	return &Store{dir: dir}, nil
}

// Dir returns the directory artifacts are written to
func (s *Store) Dir() string {
	return s.dir
}

// SaveScreenshot decodes a base64 PNG payload and writes it to disk
func (s *Store) SaveScreenshot(pageURL, encoded string) (*Artifact, error) {
	return s.save(pageURL, encoded, ".png")
}

// SavePDF decodes a base64 PDF payload, writes it to disk and returns the
// page count. An undecodable document is removed again and reported as an
// error.
func (s *Store) SavePDF(pageURL, encoded string) (*Artifact, int, error) {
	artifact, err := s.save(pageURL, encoded, ".pdf")
	if err != nil {
		return nil, 0, err
	}

	pages, err := api.PageCountFile(artifact.Path)
	if err != nil {
		os.Remove(artifact.Path)
		return nil, 0, fmt.Errorf("saved PDF failed validation: %v", err)
	}
	return artifact, pages, nil
}

func (s *Store) save(pageURL, encoded, ext string) (*Artifact, error) {
	payload, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("failed to decode artifact payload: %v", err)
	}
	if len(payload) == 0 {
		return nil, fmt.Errorf("artifact payload is empty")
	}

	path := filepath.Join(s.dir, artifactName(pageURL, ext))
	if err := os.WriteFile(path, payload, 0644); err != nil {
		return nil, fmt.Errorf("failed to write artifact: %v", err)
	}
	return &Artifact{Path: path, Size: int64(len(payload))}, nil
}

// artifactName derives a safe unique file name from the page URL. The
// timestamp keeps repeated captures of the same page from overwriting each
// other.
func artifactName(pageURL, ext string) string {
	name := sanitize.BaseName(pageURL)
	if name == "" {
		name = "page"
	}
	if len(name) > 80 {
		name = name[:80]
	}
	return fmt.Sprintf("%s-%d%s", name, time.Now().UnixNano(), ext)
}

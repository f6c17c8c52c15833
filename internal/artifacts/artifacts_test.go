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

package artifacts

import (
	"encoding/base64"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentberlin/vinesnake/testutil"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(filepath.Join(t.TempDir(), "artifacts"))
	require.NoError(t, err)
	return store
}

func TestNewStoreCreatesDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "artifacts")
	store, err := NewStore(dir)
	require.NoError(t, err)

	info, err := os.Stat(store.Dir())
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestSaveScreenshot(t *testing.T) {
	store := newTestStore(t)
	encoded := base64.StdEncoding.EncodeToString(testutil.MinimalPNG())

	artifact, err := store.SaveScreenshot("https://example.com/docs/guide", encoded)
	require.NoError(t, err)

	assert.True(t, strings.HasSuffix(artifact.Path, ".png"))
	assert.Contains(t, filepath.Base(artifact.Path), "example-com")

	raw, err := os.ReadFile(artifact.Path)
	require.NoError(t, err)
	assert.Equal(t, int64(len(raw)), artifact.Size)
	assert.Equal(t, "\x89PNG\r\n\x1a\n", string(raw[:8]))
}

func TestSaveScreenshotRejectsInvalidBase64(t *testing.T) {
	store := newTestStore(t)

	_, err := store.SaveScreenshot("https://example.com", "not base64 at all!")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode")
}

func TestSaveScreenshotRejectsEmptyPayload(t *testing.T) {
	store := newTestStore(t)

	_, err := store.SaveScreenshot("https://example.com", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "empty")
}

func TestSavePDF(t *testing.T) {
	store := newTestStore(t)
	encoded := base64.StdEncoding.EncodeToString(testutil.MinimalPDF())

	artifact, pages, err := store.SavePDF("https://example.com/report", encoded)
	require.NoError(t, err)

	assert.Equal(t, 1, pages)
	assert.True(t, strings.HasSuffix(artifact.Path, ".pdf"))

	raw, err := os.ReadFile(artifact.Path)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(raw), "%PDF-"))
}

func TestSavePDFRejectsCorruptDocument(t *testing.T) {
	store := newTestStore(t)
	encoded := base64.StdEncoding.EncodeToString([]byte("this is not a pdf"))

	_, _, err := store.SavePDF("https://example.com/report", encoded)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "validation")

	// The rejected file must not linger in the store directory
	entries, err := os.ReadDir(store.Dir())
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestSuccessiveSavesGetDistinctNames(t *testing.T) {
	store := newTestStore(t)
	encoded := base64.StdEncoding.EncodeToString(testutil.MinimalPNG())

	first, err := store.SaveScreenshot("https://example.com", encoded)
	require.NoError(t, err)
	second, err := store.SaveScreenshot("https://example.com", encoded)
	require.NoError(t, err)

	assert.NotEqual(t, first.Path, second.Path)
}

func TestArtifactNameTruncatesLongURLs(t *testing.T) {
	long := "https://example.com/" + strings.Repeat("segment/", 40)
	name := artifactName(long, ".png")

	assert.LessOrEqual(t, len(name), 80+len(".png")+21)
	assert.True(t, strings.HasSuffix(name, ".png"))
}

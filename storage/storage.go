// Copyright 2025 Agentic World, LLC (Sherin Thomas)
//
// This file includes modifications to code originally developed by Adam Tauber,
// licensed under the Apache License, Version 2.0.
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

package storage

import (
	"sync"
)

// Storage holds one traversal run's dedup state: the visited set keyed by
// request hash, and the content fingerprints already produced during the
// run. The default backend is InMemoryStorage; Traversal.SetStorage swaps
// in another implementation.
type Storage interface {
	// Init prepares the storage for a new traversal run. Any state from a
	// previous run is discarded; the visited set is scoped to a single
	// invocation and never shared across runs.
	Init() error
	// Visited marks a request hash as visited
	Visited(requestID uint64) error
	// IsVisited reports whether the request hash was visited during this run
	IsVisited(requestID uint64) (bool, error)
	// VisitIfNotVisited atomically checks whether a request hash has been
	// visited and, if not, marks it. Returns true when the hash was already
	// visited. This is the check the traversal's cycle safety rests on.
	VisitIfNotVisited(requestID uint64) (bool, error)
	// IsContentSeen reports whether a content fingerprint occurred earlier
	// in the run
	IsContentSeen(fingerprint string) (bool, error)
	// MarkContentSeen records a content fingerprint
	MarkContentSeen(fingerprint string) error
}

// InMemoryStorage is the default storage backend. Nothing is persisted;
// Init resets all state.
type InMemoryStorage struct {
	visited     map[uint64]bool
	seenContent map[string]bool
	lock        sync.RWMutex
}

// Init implements Storage.Init by resetting the visited and content sets
func (s *InMemoryStorage) Init() error {
	s.lock.Lock()
	s.visited = make(map[uint64]bool)
	s.seenContent = make(map[string]bool)
	s.lock.Unlock()
	return nil
}

// Visited implements Storage.Visited
func (s *InMemoryStorage) Visited(requestID uint64) error {
	s.lock.Lock()
	s.visited[requestID] = true
	s.lock.Unlock()
	return nil
}

// IsVisited implements Storage.IsVisited
func (s *InMemoryStorage) IsVisited(requestID uint64) (bool, error) {
	s.lock.RLock()
	visited := s.visited[requestID]
	s.lock.RUnlock()
	return visited, nil
}

// VisitIfNotVisited implements Storage.VisitIfNotVisited
func (s *InMemoryStorage) VisitIfNotVisited(requestID uint64) (bool, error) {
	s.lock.Lock()
	defer s.lock.Unlock()
	if s.visited[requestID] {
		return true, nil
	}
	s.visited[requestID] = true
	return false, nil
}

// IsContentSeen implements Storage.IsContentSeen
func (s *InMemoryStorage) IsContentSeen(fingerprint string) (bool, error) {
	s.lock.RLock()
	seen := s.seenContent[fingerprint]
	s.lock.RUnlock()
	return seen, nil
}

// MarkContentSeen implements Storage.MarkContentSeen
func (s *InMemoryStorage) MarkContentSeen(fingerprint string) error {
	s.lock.Lock()
	s.seenContent[fingerprint] = true
	s.lock.Unlock()
	return nil
}

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

import "fmt"

// RecordCrawl stores the summary of a finished crawl
func (s *Store) RecordCrawl(record *CrawlRecord) error {
	if record.Status == "" {
		record.Status = "completed"
	}
	if err := s.db.Create(record).Error; err != nil {
		return fmt.Errorf("failed to record crawl: %v", err)
	}
	return nil
}

// ListCrawls returns recent crawls, newest first. A limit of 0 or less
// returns all of them.
func (s *Store) ListCrawls(limit int) ([]CrawlRecord, error) {
	query := s.db.Order("created_at DESC, id DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}

	var crawls []CrawlRecord
	if err := query.Find(&crawls).Error; err != nil {
		return nil, fmt.Errorf("failed to list crawls: %v", err)
	}
	return crawls, nil
}

// CrawlCount returns the number of recorded crawls
func (s *Store) CrawlCount() (int64, error) {
	var count int64
	if err := s.db.Model(&CrawlRecord{}).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count crawls: %v", err)
	}
	return count, nil
}

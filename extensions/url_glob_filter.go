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

package extensions

import (
	"github.com/gobwas/glob"

	"github.com/agentberlin/vinesnake"
)

// URLGlobFilter keeps only candidate URLs that match at least one of the
// given glob patterns. Patterns match the full URL, and "*" spans path
// separators: "*/docs/*" matches any docs page on any host. Glob syntax is
// friendlier than the regex include pattern for simple path rules.
func URLGlobFilter(t *vinesnake.Traversal, patterns ...string) error {
	globs, err := compileGlobs(patterns)
	if err != nil {
		return err
	}
	t.OnCandidate(func(pageURL string, depth int) bool {
		for _, g := range globs {
			if g.Match(pageURL) {
				return true
			}
		}
		return false
	})
	return nil
}

// URLGlobExclude drops candidate URLs matching any of the given glob
// patterns
func URLGlobExclude(t *vinesnake.Traversal, patterns ...string) error {
	globs, err := compileGlobs(patterns)
	if err != nil {
		return err
	}
	t.OnCandidate(func(pageURL string, depth int) bool {
		for _, g := range globs {
			if g.Match(pageURL) {
				return false
			}
		}
		return true
	})
	return nil
}

func compileGlobs(patterns []string) ([]glob.Glob, error) {
	globs := make([]glob.Glob, 0, len(patterns))
	for _, p := range patterns {
		g, err := glob.Compile(p)
		if err != nil {
			return nil, err
		}
		globs = append(globs, g)
	}
	return globs, nil
}

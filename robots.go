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

package vinesnake

import (
	"context"
	"net/url"

	"github.com/rs/zerolog"
	"github.com/temoto/robotstxt"
)

// robotsGate caches per-host robots.txt verdicts for one traversal run.
// Fetch or parse failures are cached as nil, which allows everything: a
// broken robots.txt never blocks a crawl the operator asked for.
type robotsGate struct {
	probe  *ProbeClient
	logger zerolog.Logger
	hosts  map[string]*robotstxt.RobotsData
}

func newRobotsGate(probe *ProbeClient, logger zerolog.Logger) *robotsGate {
	return &robotsGate{
		probe:  probe,
		logger: logger,
		hosts:  make(map[string]*robotstxt.RobotsData),
	}
}

// Allowed reports whether pageURL may be fetched according to its host's
// robots.txt. The probe client's User-Agent is matched against the file's
// groups.
func (g *robotsGate) Allowed(ctx context.Context, pageURL string) bool {
	parsed, err := url.Parse(pageURL)
	if err != nil || parsed.Host == "" {
		return true
	}
	key := parsed.Scheme + "://" + parsed.Host

	data, cached := g.hosts[key]
	if !cached {
		data = g.fetch(ctx, key+"/robots.txt")
		g.hosts[key] = data
	}
	if data == nil {
		return true
	}

	path := parsed.Path
	if path == "" {
		path = "/"
	}
	if parsed.RawQuery != "" {
		path += "?" + parsed.RawQuery
	}
	return data.TestAgent(path, g.probe.UserAgent)
}

func (g *robotsGate) fetch(ctx context.Context, robotsURL string) *robotstxt.RobotsData {
	res, err := g.probe.Get(ctx, robotsURL)
	if err != nil {
		g.logger.Debug().Err(err).Str("url", robotsURL).Msg("robots.txt fetch failed")
		return nil
	}
	data, err := robotstxt.FromStatusAndBytes(res.StatusCode, res.Body)
	if err != nil {
		g.logger.Debug().Err(err).Str("url", robotsURL).Msg("robots.txt parse failed")
		return nil
	}
	return data
}

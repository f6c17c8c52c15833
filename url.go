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
	"fmt"
	"net/url"
	"path"
	"strings"

	whatwgUrl "github.com/nlnwa/whatwg-url/url"
)

// urlParser handles URLs the way browsers do, including single percent signs
// and other quirks the stdlib parser rejects.
var urlParser = whatwgUrl.NewParser(whatwgUrl.WithPercentEncodeSinglePercentSign())

// CanonicalURL normalizes a raw URL to its absolute, fragment-free form.
// The canonical form is what the visited set is keyed on, so two spellings
// of the same page (trailing fragment, unencoded characters) collapse to one
// entry.
func CanonicalURL(raw string) (string, error) {
	parsed, err := urlParser.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("%w: %s", ErrInvalidSeedURL, raw)
	}
	return parsed.Href(true), nil
}

// ResolveURL resolves href against base and returns the absolute URL,
// fragment preserved. href may already be absolute.
func ResolveURL(base, href string) (string, error) {
	resolved, err := urlParser.ParseRef(base, href)
	if err != nil {
		return "", err
	}
	return resolved.Href(false), nil
}

// Hostname returns the lowercase hostname of a URL, without the port
func Hostname(raw string) (string, error) {
	parsed, err := urlParser.Parse(raw)
	if err != nil {
		return "", err
	}
	return strings.ToLower(parsed.Hostname()), nil
}

// HostPort returns the lowercase hostname, including the port when it is
// non-standard. Used for display and for host-based matching where port
// matters.
func HostPort(raw string) string {
	parsed, err := urlParser.Parse(raw)
	if err != nil {
		return ""
	}
	hostname := parsed.Hostname()
	port := parsed.Port()
	if port != "" && port != "80" && port != "443" {
		return strings.ToLower(hostname + ":" + port)
	}
	return strings.ToLower(hostname)
}

// SameHost reports whether two URLs share the exact same hostname.
// Subdomains do not match: blog.example.com is not the same host as
// example.com. The traversal's origin restriction relies on this being an
// exact comparison.
func SameHost(a, b string) bool {
	ha, err := Hostname(a)
	if err != nil || ha == "" {
		return false
	}
	hb, err := Hostname(b)
	if err != nil || hb == "" {
		return false
	}
	return ha == hb
}

// IsHTTP reports whether a URL uses the http or https scheme. Links with
// other schemes (mailto:, javascript:, tel:, data:) are never classified or
// traversed.
func IsHTTP(raw string) bool {
	parsed, err := urlParser.Parse(raw)
	if err != nil {
		return false
	}
	// Second parse through net/url for scheme access, same two-step the
	// collector-era code used.
	stdURL, err := url.Parse(parsed.Href(false))
	if err != nil {
		return false
	}
	return stdURL.Scheme == "http" || stdURL.Scheme == "https"
}

// urlPath returns the decoded path component of a URL, "/" when empty
func urlPath(raw string) string {
	parsed, err := urlParser.Parse(raw)
	if err != nil {
		return ""
	}
	stdURL, err := url.Parse(parsed.Href(true))
	if err != nil {
		return ""
	}
	if stdURL.Path == "" {
		return "/"
	}
	return stdURL.Path
}

// urlExtension returns the lowercase file extension of a URL's path,
// including the dot, or "" when the path has none
func urlExtension(raw string) string {
	p := urlPath(raw)
	if p == "" {
		return ""
	}
	return strings.ToLower(path.Ext(p))
}

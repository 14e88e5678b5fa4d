// Copyright (C) 2024 Artifact Registry Authors.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package metrics

import "regexp"

var githubURLPattern = regexp.MustCompile(`github\.com/([^/]+)/([^/]+?)(?:\.git)?/?$`)

// parseGitHubURL extracts the owner and repository name from a GitHub
// URL, tolerating a trailing ".git" or slash.
func parseGitHubURL(url string) (owner, name string, ok bool) {
	m := githubURLPattern.FindStringSubmatch(url)
	if m == nil {
		return "", "", false
	}
	return m[1], m[2], true
}

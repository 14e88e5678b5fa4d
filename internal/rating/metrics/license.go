// Copyright (C) 2024 Artifact Registry Authors.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package metrics

import (
	"bufio"
	"context"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/artifact-registry/registry/internal/rating"
)

var permissiveLicenses = map[string]bool{
	"mit": true, "bsd-2-clause": true, "bsd-3-clause": true,
	"apache-2.0": true, "lgpl-2.1": true, "lgpl-3.0": true,
	"mpl-2.0": true, "cc-by-4.0": true,
	"openrail-m": true, "bigscience-openrail-m": true,
}

var restrictiveLicenses = map[string]bool{
	"cc-by-nc": true, "cc-by-nc-4.0": true, "rail-nc": true, "openrail-nc": true,
	"creativeml-openrail-non-commercial": true,
	"agpl-3.0": true, "agpl-3.0-only": true, "agpl-3.0-or-later": true,
}

var licenseAliases = map[string]string{
	"bsd-2": "bsd-2-clause",
	"bsd-3": "bsd-3-clause",
}

var nonCommercialPattern = regexp.MustCompile(`(?i)(non[\s-]*commercial|research[\s-]*only|no[\s-]*derivatives|noai|no-ai)`)

var parenComment = regexp.MustCompile(`\(.*?\)`)

func normalizeLicense(s string) string {
	s = parenComment.ReplaceAllString(s, "")
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.ReplaceAll(s, "_", "-")
	s = regexp.MustCompile(`\s+`).ReplaceAllString(s, "-")
	if alias, ok := licenseAliases[s]; ok {
		return alias
	}
	return s
}

// License scores how compatible an artifact's declared license is with
// unrestricted redistribution: permissive licenses score 1, detected
// non-commercial/no-derivative language scores 0, everything else
// lands in between.
type License struct {
	WeightValue float64
}

func NewLicense(weight float64) *License { return &License{WeightValue: weight} }

func (l *License) Name() string    { return "license" }
func (l *License) Weight() float64 { return l.WeightValue }

func (l *License) Score(_ context.Context, in rating.Input) (float64, error) {
	declared := findLicenseDeclaration(in.TreePath)
	if declared == "" {
		return 0.5, nil
	}

	norm := normalizeLicense(declared)
	if nonCommercialPattern.MatchString(declared) {
		return 0.0, nil
	}
	if permissiveLicenses[norm] {
		return 1.0, nil
	}
	if restrictiveLicenses[norm] {
		return 0.0, nil
	}
	return 0.5, nil
}

// findLicenseDeclaration looks for a top-level LICENSE file or a
// "license:" front-matter line in the README, the two places
// Hugging Face and GitHub artifacts conventionally declare one.
func findLicenseDeclaration(root string) string {
	candidates := []string{"LICENSE", "LICENSE.md", "LICENSE.txt", "COPYING"}
	for _, name := range candidates {
		if _, err := os.Stat(filepath.Join(root, name)); err == nil {
			return name
		}
	}

	readme, err := os.Open(filepath.Join(root, "README.md"))
	if err != nil {
		return ""
	}
	defer readme.Close()

	scanner := bufio.NewScanner(readme)
	inFrontMatter := false
	for scanner.Scan() {
		line := scanner.Text()
		if strings.TrimSpace(line) == "---" {
			if inFrontMatter {
				break
			}
			inFrontMatter = true
			continue
		}
		if !inFrontMatter {
			continue
		}
		if strings.HasPrefix(strings.ToLower(strings.TrimSpace(line)), "license:") {
			parts := strings.SplitN(line, ":", 2)
			if len(parts) == 2 {
				return strings.TrimSpace(parts[1])
			}
		}
	}
	return ""
}

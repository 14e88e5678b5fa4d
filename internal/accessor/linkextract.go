// Copyright (C) 2024 Artifact Registry Authors.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package accessor

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/artifact-registry/registry/internal/model"
)

// ReadmeLinkExtractor mines a model's linked dataset/codebase/parent
// names from its README the way the original registry's model-card
// parsing did: YAML front matter between leading "---" fences for
// `datasets:` and `base_model:`, plus a body-wide scan for GitHub
// repository links to catch codebases never declared in front matter.
type ReadmeLinkExtractor struct{}

var _ LinkExtractor = ReadmeLinkExtractor{}

var frontMatterPattern = regexp.MustCompile(`(?s)^---\s*\n(.*?)\n---\s*\n`)

var githubLinkPattern = regexp.MustCompile(`https?://github\.com/([\w.-]+)/([\w.-]+?)(?:\.git)?(?:[/)\s]|$)`)

type modelCardFrontMatter struct {
	Datasets  []string `yaml:"datasets"`
	BaseModel string   `yaml:"base_model"`
}

// Extract reads treePath/README.md and derives the linked names. A
// missing or front-matter-less README yields an empty LinkedNames, not
// an error: not every model card declares its dependencies.
func (ReadmeLinkExtractor) Extract(treePath string) (model.LinkedNames, error) {
	body, err := os.ReadFile(filepath.Join(treePath, "README.md"))
	if err != nil {
		return model.LinkedNames{}, nil
	}

	var linked model.LinkedNames

	if m := frontMatterPattern.FindSubmatch(body); m != nil {
		var fm modelCardFrontMatter
		if err := yaml.Unmarshal(m[1], &fm); err == nil {
			linked.DatasetNames = fm.Datasets
			if fm.BaseModel != "" {
				linked.ParentModelName = fm.BaseModel
				linked.ParentRelationTag = "finetune"
				linked.ParentSourceTag = "model_card"
			}
		}
	}

	for _, m := range githubLinkPattern.FindAllStringSubmatch(string(body), -1) {
		name := strings.TrimSuffix(m[1]+"-"+m[2], ".git")
		if !containsStr(linked.CodebaseNames, name) {
			linked.CodebaseNames = append(linked.CodebaseNames, name)
		}
	}

	return linked, nil
}

func containsStr(set []string, v string) bool {
	for _, s := range set {
		if s == v {
			return true
		}
	}
	return false
}

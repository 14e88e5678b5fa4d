// Copyright (C) 2024 Artifact Registry Authors.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package accessor

import (
	"bytes"

	"github.com/artifact-registry/registry/internal/objectstore"
)

// archiveTree packages a downloaded working tree into the tar+gzip
// payload the object store expects.
func archiveTree(path string) ([]byte, error) {
	var buf bytes.Buffer
	if err := objectstore.PackTree(path, &buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

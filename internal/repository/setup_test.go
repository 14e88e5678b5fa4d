// Copyright (C) 2024 Artifact Registry Authors.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package repository

import (
	"sync"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/require"
)

// freshRepo resets the package-wide connection/repository singletons
// and reconnects to a throwaway in-memory database, migrated to the
// current schema version.
func freshRepo(t *testing.T) *ArtifactRepository {
	t.Helper()
	resetForTesting()
	artifactRepoOnce = sync.Once{}
	artifactRepoInstance = nil

	require.NoError(t, Connect("sqlite3://:memory:"))
	conn := GetConnection()
	require.NoError(t, MigrateUp(conn.DB.DB, "sqlite3"))

	return GetArtifactRepository()
}

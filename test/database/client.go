package database

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/learnloop/mentor/pkg/database"
	"github.com/learnloop/mentor/test/util"
)

// NewTestClient creates a test database client.
// In CI (when CI_DATABASE_URL is set): connects to external PostgreSQL service container.
// In local dev: uses a shared testcontainer with PostgreSQL.
// Each test gets its own schema with all migrations applied; the schema is
// dropped automatically when the test ends.
func NewTestClient(t *testing.T) *database.Client {
	t.Helper()
	ctx := context.Background()

	connStr := util.SetupTestSchema(t)

	client, err := database.NewClientFromConnString(ctx, connStr)
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = client.Close()
	})

	return client
}

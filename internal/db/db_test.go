package db

import (
	"context"
	"os"
	"testing"

	"github.com/joho/godotenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSchemaEmbedded(t *testing.T) {
	assert.Contains(t, schema, "btree_gist")
	assert.Contains(t, schema, "bookings_no_overlap")
}

func TestApplySchema(t *testing.T) {
	_ = godotenv.Load("../../.env")
	dsn := os.Getenv("TEST_DB_DSN")
	if dsn == "" {
		t.Skip("TEST_DB_DSN not set")
	}

	ctx := context.Background()
	pool, err := NewPool(ctx, dsn)
	require.NoError(t, err)
	defer pool.Close()

	require.NoError(t, ApplySchema(ctx, pool))
	// Idempotent.
	require.NoError(t, ApplySchema(ctx, pool))
}

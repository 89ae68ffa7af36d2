package db

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConnectPostgresRejectsBadDSN(t *testing.T) {
	pool, err := ConnectPostgres(context.Background(), "postgres://agent@localhost:notaport/agent")
	require.Error(t, err)
	assert.Nil(t, pool)
	assert.Contains(t, err.Error(), "parse postgres dsn")
}

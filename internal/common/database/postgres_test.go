package database

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestWaitReady_FirstPing(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectPing()

	require.NoError(t, waitReady(context.Background(), db, zap.NewNop()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWaitReady_CancelledWhileRetrying(t *testing.T) {
	db, _, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	defer db.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err = waitReady(ctx, db, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestClose_Nil(t *testing.T) {
	assert.NoError(t, Close(nil))
}

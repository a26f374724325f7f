package db

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func TestMigrateCreatesCartTable(t *testing.T) {
	database, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer database.Close()

	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS cart_states`).WillReturnResult(sqlmock.NewResult(0, 0))
	require.NoError(t, Migrate(context.Background(), database))

	mock.ExpectExec(`CREATE TABLE`).WillReturnError(errors.New("permission denied"))
	assert.Error(t, Migrate(context.Background(), database))

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestConnectRejectsEmptyURL(t *testing.T) {
	_, err := Connect("")
	assert.Error(t, err)
}

func TestConnectRedis(t *testing.T) {
	mr := miniredis.RunT(t)

	client, err := ConnectRedis(context.Background(), mr.Addr(), 0, quietLogger())
	require.NoError(t, err)
	defer client.Close()

	assert.NoError(t, client.Set(context.Background(), "k", "v", 0).Err())
	got, err := mr.Get("k")
	require.NoError(t, err)
	assert.Equal(t, "v", got)
}

func TestConnectRedisGivesUpWhenContextEnds(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	_, err := ConnectRedis(ctx, addr, 0, quietLogger())
	assert.Error(t, err)

	_, err = ConnectRedis(context.Background(), "", 0, quietLogger())
	assert.Error(t, err)
}

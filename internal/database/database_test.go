package database

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPostgresDB_Close_NilPool(t *testing.T) {
	db := &PostgresDB{Pool: nil}

	assert.NotPanics(t, func() {
		db.Close()
	})
}

func TestRedisClient_Close_NilClient(t *testing.T) {
	r := &RedisClient{Client: nil}

	assert.NotPanics(t, func() {
		r.Close()
	})
}

func TestNewTracedDB(t *testing.T) {
	db := NewTracedDB(nil)
	assert.NotNil(t, db)
	assert.Nil(t, db.Pool)
}

//go:build integration

package containers

import (
	"sync"
	"testing"
)

// Manager hands out one container per backend for the whole test binary.
// Suites share instances and isolate themselves with FlushAll/TruncateTables.
type Manager struct {
	redisOnce    sync.Once
	redis        *RedisContainer
	postgresOnce sync.Once
	postgres     *PostgresContainer
}

var manager = &Manager{}

func GetManager() *Manager { return manager }

func (m *Manager) GetRedis(t *testing.T) *RedisContainer {
	m.redisOnce.Do(func() { m.redis = startRedis(t) })
	if m.redis == nil {
		t.Fatal("redis container failed to start")
	}
	return m.redis
}

func (m *Manager) GetPostgres(t *testing.T) *PostgresContainer {
	m.postgresOnce.Do(func() { m.postgres = startPostgres(t) })
	if m.postgres == nil {
		t.Fatal("postgres container failed to start")
	}
	return m.postgres
}

package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_ValoresPorDefecto(t *testing.T) {
	t.Setenv("APP_STORAGE", "memory")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "medstock-api", cfg.App.Name)
	assert.Equal(t, 8080, cfg.HTTP.Port)
	assert.Equal(t, 30*time.Second, cfg.Redis.SummaryTTL)
	assert.Equal(t, 7, cfg.Backup.Keep)
	assert.False(t, cfg.Mail.Enabled())
}

func TestLoad_BrokersSeparadosPorComa(t *testing.T) {
	t.Setenv("APP_STORAGE", "memory")
	t.Setenv("KAFKA_BROKERS", "kafka-1:9092, kafka-2:9092,,")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, cfg.Kafka.Brokers)
	assert.True(t, cfg.Kafka.Enabled())
}

func TestLoad_StorageInvalido(t *testing.T) {
	t.Setenv("APP_STORAGE", "sqlite")

	_, err := Load()
	assert.Error(t, err)
}

func TestDBConfig_DSNEscapaPassword(t *testing.T) {
	c := DBConfig{Host: "db", Port: 5432, User: "med", Password: "p@ss:w/rd", DBName: "medstock", SSLMode: "disable"}
	assert.Equal(t, "postgres://med:p%40ss%3Aw%2Frd@db:5432/medstock?sslmode=disable", c.DSN())
	assert.Equal(t, c.DSN(), c.ConnectionString())
}

func TestLoad_AjustesDelPool(t *testing.T) {
	t.Setenv("APP_STORAGE", "memory")
	t.Setenv("DB_MAX_CONNS", "20")
	t.Setenv("DB_FORCE_IPV4", "true")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 20, cfg.DB.MaxConns)
	assert.Equal(t, 1, cfg.DB.MinConns)
	assert.Equal(t, time.Hour, cfg.DB.MaxConnLifetime)
	assert.True(t, cfg.DB.ForceIPv4)
}

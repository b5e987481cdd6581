package config

import (
	"os"
	"testing"
	"time"
)

func TestLoadConfig(t *testing.T) {
	testEnv := map[string]string{
		"DB_HOST":              "localhost",
		"DB_PORT":              "5432",
		"DB_USER":              "testuser",
		"DB_PASSWORD":          "testpass",
		"DB_NAME":              "testdb",
		"DB_SSL_MODE":          "disable",
		"DB_MAX_OPEN_CONNS":    "25",
		"DB_MAX_IDLE_CONNS":    "25",
		"DB_CONN_MAX_LIFETIME": "300s",
	}

	for k, v := range testEnv {
		os.Setenv(k, v)
		defer os.Unsetenv(k)
	}

	err := LoadConfig()
	if err != nil {
		t.Errorf("LoadConfig failed: %v", err)
	}

	if AppConfig.Database.MaxOpenConns != 25 {
		t.Errorf("Expected MaxOpenConns to be 25, got %v", AppConfig.Database.MaxOpenConns)
	}
	if AppConfig.Database.MaxIdleConns != 25 {
		t.Errorf("Expected MaxIdleConns to be 25, got %v", AppConfig.Database.MaxIdleConns)
	}
	expectedLifetime := 300 * time.Second
	if AppConfig.Database.MaxLifetime != expectedLifetime {
		t.Errorf("Expected MaxLifetime to be %v, got %v", expectedLifetime, AppConfig.Database.MaxLifetime)
	}
	if AppConfig.Database.Name != "testdb" {
		t.Errorf("Expected Database.Name to be testdb, got %v", AppConfig.Database.Name)
	}
}

func TestDatabaseDSNIncludesAllFields(t *testing.T) {
	c := &Config{}
	c.Database.Host = "db.internal"
	c.Database.Port = 5432
	c.Database.User = "svc"
	c.Database.Password = "secret"
	c.Database.Name = "catalog_sync"
	c.Database.SSLMode = "require"

	dsn := c.DatabaseDSN()
	want := "host=db.internal port=5432 user=svc password=secret dbname=catalog_sync sslmode=require"
	if dsn != want {
		t.Errorf("DatabaseDSN() = %q, want %q", dsn, want)
	}
}

package config

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Connection pool defaults applied when the config leaves a field unset.
const (
	defaultMaxIdleConns    = 10
	defaultMaxOpenConns    = 100
	defaultConnMaxLifetime = time.Hour
)

// SetupDatabase opens a GORM connection for the configured driver ("sqlite"
// or "postgres"), applies connection pool settings, and picks the GORM log
// mode from the slog level. The caller owns closing the underlying sql.DB.
func SetupDatabase(cfg *DatabaseConfig, logger *slog.Logger) (*gorm.DB, error) {
	if cfg == nil {
		return nil, errors.New("database config is nil")
	}
	if logger == nil {
		return nil, errors.New("logger is nil")
	}

	dialector, err := openDialector(cfg)
	if err != nil {
		return nil, err
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormLogMode(logger)),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	pool, err := resolvePool(&cfg.Pool)
	if err != nil {
		if sqlDB, dbErr := db.DB(); dbErr == nil {
			sqlDB.Close()
		}
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	sqlDB.SetMaxIdleConns(pool.maxIdle)
	sqlDB.SetMaxOpenConns(pool.maxOpen)
	sqlDB.SetConnMaxLifetime(pool.maxLifetime)

	logger.Info("database connected",
		slog.String("driver", cfg.Driver),
		slog.Int("max_idle_conns", pool.maxIdle),
		slog.Int("max_open_conns", pool.maxOpen),
		slog.Duration("conn_max_lifetime", pool.maxLifetime),
	)

	return db, nil
}

func openDialector(cfg *DatabaseConfig) (gorm.Dialector, error) {
	switch cfg.Driver {
	case "sqlite":
		if dir := filepath.Dir(cfg.SQLite.Path); dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("failed to create sqlite directory %q: %w", dir, err)
			}
		}
		return sqlite.Open(cfg.SQLite.Path), nil
	case "postgres":
		return postgres.Open(buildPostgresDSN(&cfg.Postgres)), nil
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", cfg.Driver)
	}
}

// gormLogMode maps the slog level onto GORM's logger: debug logs every SQL
// statement, anything quieter logs only slow queries and errors.
func gormLogMode(logger *slog.Logger) gormlogger.LogLevel {
	if logger.Enabled(context.Background(), slog.LevelDebug) {
		return gormlogger.Info
	}
	return gormlogger.Warn
}

type poolSettings struct {
	maxIdle     int
	maxOpen     int
	maxLifetime time.Duration
}

// resolvePool fills unset pool fields with defaults and rejects lifetimes
// that would disable connection recycling.
func resolvePool(cfg *PoolConfig) (poolSettings, error) {
	p := poolSettings{
		maxIdle:     cfg.MaxIdleConns,
		maxOpen:     cfg.MaxOpenConns,
		maxLifetime: defaultConnMaxLifetime,
	}
	if p.maxIdle <= 0 {
		p.maxIdle = defaultMaxIdleConns
	}
	if p.maxOpen <= 0 {
		p.maxOpen = defaultMaxOpenConns
	}

	if raw := strings.TrimSpace(cfg.ConnMaxLifetime); raw != "" {
		lifetime, err := time.ParseDuration(raw)
		if err != nil {
			return poolSettings{}, fmt.Errorf("invalid pool.conn_max_lifetime %q: %w", cfg.ConnMaxLifetime, err)
		}
		if lifetime <= 0 {
			return poolSettings{}, fmt.Errorf("invalid pool.conn_max_lifetime %q: must be positive", cfg.ConnMaxLifetime)
		}
		p.maxLifetime = lifetime
	}

	return p, nil
}

func buildPostgresDSN(cfg *PostgresConfig) string {
	if cfg == nil {
		return ""
	}

	parts := []string{
		fmt.Sprintf("host=%s", cfg.Host),
		fmt.Sprintf("port=%d", cfg.Port),
		fmt.Sprintf("dbname=%s", cfg.DBName),
	}
	if cfg.User != "" {
		parts = append(parts, fmt.Sprintf("user=%s", cfg.User))
	}
	if cfg.Password != "" {
		parts = append(parts, fmt.Sprintf("password=%s", cfg.Password))
	}
	if cfg.SSLMode != "" {
		parts = append(parts, fmt.Sprintf("sslmode=%s", cfg.SSLMode))
	}
	return strings.Join(parts, " ")
}

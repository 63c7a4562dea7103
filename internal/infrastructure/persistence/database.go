package persistence

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/marketlevy/backend/internal/infrastructure/config"
	"github.com/marketlevy/backend/internal/infrastructure/logger"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Database owns the GORM handle shared by the levy repositories.
type Database struct {
	DB *gorm.DB
}

type dbOptions struct {
	log    *zap.Logger
	sqlLog logger.SQLLogConfig
}

// DatabaseOption configures NewDatabase
type DatabaseOption func(*dbOptions)

// WithSQLLog routes GORM's statement log through zap.
func WithSQLLog(log *zap.Logger, cfg logger.SQLLogConfig) DatabaseOption {
	return func(o *dbOptions) {
		o.log = log
		o.sqlLog = cfg
	}
}

// NewDatabase opens the postgres pool described by cfg and pings it. Without
// WithSQLLog statements are not logged.
func NewDatabase(cfg *config.DatabaseConfig, opts ...DatabaseOption) (*Database, error) {
	o := dbOptions{sqlLog: logger.SQLLogConfig{Level: gormlogger.Silent}}
	for _, opt := range opts {
		opt(&o)
	}

	db, err := gorm.Open(postgres.Open(cfg.DSN()), GormConfig(o.log, o.sqlLog))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	configurePool(sqlDB, cfg)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return &Database{DB: db}, nil
}

func configurePool(sqlDB *sql.DB, cfg *config.DatabaseConfig) {
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(time.Duration(cfg.ConnMaxLifetime) * time.Minute)
	sqlDB.SetConnMaxIdleTime(time.Duration(cfg.ConnMaxIdleTime) * time.Minute)
}

// GormConfig is the GORM configuration shared by the server and the
// integration tests. TranslateError lets repositories detect unique
// violations with gorm.ErrDuplicatedKey.
func GormConfig(zapLogger *zap.Logger, sqlLog logger.SQLLogConfig) *gorm.Config {
	return &gorm.Config{
		Logger:                 logger.NewGormLogger(zapLogger, sqlLog),
		SkipDefaultTransaction: true,
		PrepareStmt:            true,
		TranslateError:         true,
		NowFunc:                func() time.Time { return time.Now().UTC() },
	}
}

func (d *Database) sqlDB() (*sql.DB, error) {
	sqlDB, err := d.DB.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	return sqlDB, nil
}

// Close closes the database connection
func (d *Database) Close() error {
	sqlDB, err := d.sqlDB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Ping backs the readiness probe.
func (d *Database) Ping(ctx context.Context) error {
	sqlDB, err := d.sqlDB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// PoolStats reports connection pool statistics for the pool gauges. A handle
// that cannot expose its pool reports zeros.
func (d *Database) PoolStats() sql.DBStats {
	sqlDB, err := d.sqlDB()
	if err != nil {
		return sql.DBStats{}
	}
	return sqlDB.Stats()
}

// Transaction executes a function within a database transaction
func (d *Database) Transaction(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return d.DB.WithContext(ctx).Transaction(fn)
}

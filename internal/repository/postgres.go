package repository

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"

	"github.com/core-coin/walletx/internal/models"
	"github.com/core-coin/walletx/pkg/logger"
)

// DB is the gorm backed ledger store. The same schema runs on PostgreSQL and SQLite.
type DB struct {
	logger *logger.Logger

	Conn *gorm.DB
}

func NewPostgresDB(user, password, dbname, host string, port int, logger *logger.Logger) (*DB, error) {
	dsn := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%d sslmode=disable",
		host, user, password, dbname, port)

	// Configure GORM logger to suppress "record not found" messages
	gormLogger := gormLogger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		gormLogger.Config{
			SlowThreshold:             200 * time.Millisecond,
			LogLevel:                  gormLogger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  true,
		},
	)
	db, err := newDB(postgres.Open(dsn), gormLogger, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to PostgreSQL: %s", err)
	}
	logger.Info("Successfully connected to PostgreSQL!")
	return db, nil
}

// NewSQLiteDB opens the SQLite database at path. An empty path or ":memory:"
// opens a private in-memory database.
func NewSQLiteDB(path string, logger *logger.Logger) (*DB, error) {
	var dsn string
	if path == "" || path == ":memory:" {
		dsn = fmt.Sprintf("file:walletx-%s?mode=memory&cache=shared", uuid.NewString())
	} else {
		dsn = fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)", path)
	}
	db, err := newDB(sqlite.Open(dsn), gormLogger.Discard, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %s", err)
	}
	// SQLite allows a single writer.
	sqlDB, err := db.Conn.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database connection: %s", err)
	}
	sqlDB.SetMaxOpenConns(1)
	logger.Info("Successfully opened SQLite database", "path", path)
	return db, nil
}

func newDB(dialector gorm.Dialector, gormLog gormLogger.Interface, logger *logger.Logger) (*DB, error) {
	conn, err := gorm.Open(dialector, &gorm.Config{Logger: gormLog})
	if err != nil {
		return nil, err
	}
	if err := conn.AutoMigrate(
		&walletRow{},
		&memberRow{},
		&transactionRow{},
		&ledgerMetaRow{},
		&tokenAccountRow{},
		&tokenAllowanceRow{},
		&models.AppLock{},
	); err != nil {
		return nil, fmt.Errorf("failed to auto-migrate models: %s", err)
	}
	return &DB{Conn: conn, logger: logger}, nil
}

func (db *DB) Close() error {
	sqlDB, err := db.Conn.DB()
	if err != nil {
		return fmt.Errorf("failed to get database connection: %s", err)
	}
	return sqlDB.Close()
}

package config

import (
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var db *gorm.DB

// InitDatabase opens the configured database once and performs automatic migrations.
func InitDatabase(modelDefs ...interface{}) *gorm.DB {
	if db != nil {
		return db
	}

	cfg := Get()
	conn, err := OpenDatabase(cfg.DBDriver, DSN(cfg), cfg.LogLevel)
	if err != nil {
		log.Fatalf("failed to connect database: %v", err)
	}

	sqlDB, err := conn.DB()
	if err != nil {
		log.Fatalf("failed to get sql.DB: %v", err)
	}
	if err := sqlDB.Ping(); err != nil {
		log.Fatalf("database ping failed: %v", err)
	}

	if err := Migrate(conn, modelDefs...); err != nil {
		log.Fatalf("auto migration failed: %v", err)
	}

	db = conn
	return db
}

// DSN builds the connection string for the configured driver.
func DSN(cfg AppConfig) string {
	if cfg.DatabaseURI != "" {
		return cfg.DatabaseURI
	}
	if strings.EqualFold(cfg.DBDriver, "mysql") {
		return fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=Local",
			cfg.DBUser,
			cfg.DBPassword,
			cfg.DBHost,
			cfg.DBPort,
			cfg.DBName,
		)
	}
	return cfg.SQLitePath + "?_foreign_keys=on&_busy_timeout=5000"
}

// OpenDatabase connects to a mysql or sqlite database and tunes the pool.
func OpenDatabase(driver, dsn, logLevel string) (*gorm.DB, error) {
	// Raise slow-sql threshold to reduce noise; IgnoreRecordNotFoundError because 404s are routine here.
	gLogger := logger.New(
		log.New(os.Stdout, "", log.LstdFlags),
		logger.Config{
			SlowThreshold:             2 * time.Second,
			LogLevel:                  toGormLogLevel(logLevel),
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)
	gormCfg := &gorm.Config{Logger: gLogger}

	var dialector gorm.Dialector
	switch strings.ToLower(driver) {
	case "mysql":
		dialector = mysql.Open(dsn)
	case "sqlite", "sqlite3", "":
		dialector = sqlite.Open(dsn)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}

	conn, err := gorm.Open(dialector, gormCfg)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driver, err)
	}

	sqlDB, err := conn.DB()
	if err != nil {
		return nil, fmt.Errorf("get sql.DB: %w", err)
	}
	if strings.EqualFold(driver, "mysql") {
		sqlDB.SetMaxIdleConns(5)
		sqlDB.SetMaxOpenConns(20)
		sqlDB.SetConnMaxLifetime(30 * time.Minute)
		sqlDB.SetConnMaxIdleTime(10 * time.Minute)
	} else {
		// sqlite serializes writers; one connection avoids "database is locked".
		sqlDB.SetMaxOpenConns(1)
	}
	return conn, nil
}

// Migrate creates or updates tables for the given models.
func Migrate(conn *gorm.DB, modelDefs ...interface{}) error {
	for _, model := range modelDefs {
		if err := conn.AutoMigrate(model); err != nil {
			return fmt.Errorf("migrate %T: %w", model, err)
		}
	}
	return nil
}

// toGormLogLevel maps application LogLevel to GORM's logger level.
func toGormLogLevel(level string) logger.LogLevel {
	switch level {
	case "debug":
		return logger.Info
	case "error":
		return logger.Error
	case "silent":
		return logger.Silent
	default:
		return logger.Warn
	}
}

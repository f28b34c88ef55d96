package db

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"time"

	"github.com/go-sql-driver/mysql"
)

const (
	connectAttempts = 10
	retryDelay      = 5 * time.Second
)

// New opens the activity log database, retrying while it starts up.
func New(addr, user, password, dbName string, maxOpenConns, maxIdleConns int, maxIdleTime string) (*sql.DB, error) {
	idle, err := time.ParseDuration(maxIdleTime)
	if err != nil {
		return nil, fmt.Errorf("invalid DB_MAX_IDLE_TIME %q: %w", maxIdleTime, err)
	}

	dbConfig := mysql.Config{
		User:                 user,
		Passwd:               password,
		Addr:                 addr,
		DBName:               dbName,
		Net:                  "tcp",
		AllowNativePasswords: true,
		ParseTime:            true,
		MultiStatements:      true,
	}

	db, err := sql.Open("mysql", dbConfig.FormatDSN())
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(maxOpenConns)
	db.SetMaxIdleConns(maxIdleConns)
	db.SetConnMaxIdleTime(idle)

	for i := 0; i < connectAttempts; i++ {
		if err = ping(db); err == nil {
			return db, nil
		}
		log.Printf("Attempt %d: Database not ready, retrying...", i+1)
		time.Sleep(retryDelay)
	}

	db.Close()
	return nil, fmt.Errorf("could not connect to the database after multiple attempts: %v", err)
}

func ping(db *sql.DB) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return db.PingContext(ctx)
}

package db

import (
	"database/sql"
	"fmt"
	"math/big"

	_ "github.com/lib/pq"
)

type DB struct {
	chainID *big.Int
	db      *sql.DB
	rdb     *sql.DB

	PollDB *PollDB
}

// NewDB connects to postgres and ensures the snapshot tables exist. Tables
// are suffixed with the chain id so one database can serve several chains.
func NewDB(chainID *big.Int, username, password, name, host, rhost string) (*DB, error) {
	connStr := fmt.Sprintf("user=%s password=%s dbname=%s host=%s port=5432 sslmode=disable", username, password, name, host)
	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	err = db.Ping()
	if err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	rconnStr := fmt.Sprintf("user=%s password=%s dbname=%s host=%s port=5432 sslmode=disable", username, password, name, rhost)
	rdb, err := sql.Open("postgres", rconnStr)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	err = rdb.Ping()
	if err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	suffix := chainID.String()

	pollDB, err := NewPollDB(db, rdb, suffix)
	if err != nil {
		return nil, err
	}

	d := &DB{
		chainID: chainID,
		db:      db,
		rdb:     rdb,
		PollDB:  pollDB,
	}

	exists, err := d.pollTableExists(suffix)
	if err != nil {
		return nil, err
	}

	if !exists {
		err = pollDB.CreatePollsTable(suffix)
		if err != nil {
			return nil, err
		}

		err = pollDB.CreateResponsesTable(suffix)
		if err != nil {
			return nil, err
		}

		err = pollDB.CreateResponsesTableIndexes(suffix)
		if err != nil {
			return nil, err
		}
	}

	return d, nil
}

func (d *DB) pollTableExists(suffix string) (bool, error) {
	var exists bool
	err := d.db.QueryRow(`
	SELECT EXISTS (
		SELECT 1
		FROM information_schema.tables
		WHERE table_name = $1
	)
	`, fmt.Sprintf("t_polls_%s", suffix)).Scan(&exists)
	if err != nil {
		return false, err
	}

	return exists, nil
}

func (d *DB) Close() error {
	err := d.db.Close()
	if err != nil {
		return err
	}

	return d.rdb.Close()
}

package sqlite

import (
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	bindata "github.com/golang-migrate/migrate/v4/source/go_bindata"
	"github.com/jmoiron/sqlx"
)

// MemoryDataSource opens a private in-process database. It lives as long as its
// single connection, so pools using it must be capped to one open connection.
const MemoryDataSource = ":memory:"

type DataSourceOptions struct {
	MaxOpenConns int
}

// New returns a new sqlite DB instance with migrated DB scheme to the latest version.
// assetNames and asset are used to migrate DB scheme.
func New(dataSourceName string, assetNames []string, asset func(name string) ([]byte, error), dataSourceOptions DataSourceOptions) (*sqlx.DB, error) {
	db, err := sqlx.Connect("sqlite3", dataSourceName)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to DB: %v", err)
	}

	if dataSourceOptions.MaxOpenConns > 0 {
		db.SetMaxOpenConns(dataSourceOptions.MaxOpenConns)
		db.SetMaxIdleConns(dataSourceOptions.MaxOpenConns)
	}
	// an idle in-memory connection must never be recycled, it holds the data
	db.SetConnMaxLifetime(0)

	if err := migrateUp(db, assetNames, asset); err != nil {
		_ = db.Close()
		return nil, err
	}

	return db, nil
}

// NewMemory returns a migrated in-memory database restricted to one connection.
func NewMemory(assetNames []string, asset func(name string) ([]byte, error)) (*sqlx.DB, error) {
	return New(MemoryDataSource, assetNames, asset, DataSourceOptions{MaxOpenConns: 1})
}

func migrateUp(db *sqlx.DB, assetNames []string, asset func(name string) ([]byte, error)) error {
	s := bindata.Resource(assetNames,
		func(name string) ([]byte, error) {
			return asset(name)
		})
	sourceDriver, err := bindata.WithInstance(s)
	if err != nil {
		return fmt.Errorf("failed to init DB source driver: %v", err)
	}

	dbDriver, err := sqlite3.WithInstance(db.DB, &sqlite3.Config{})
	if err != nil {
		return fmt.Errorf("failed to init DB migration driver: %v", err)
	}

	m, err := migrate.NewWithInstance("go-bindata", sourceDriver, "sqlite3", dbDriver)
	if err != nil {
		return fmt.Errorf("failed to init DB migration instance: %v", err)
	}

	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("failed to migrate DB to the latest version: %v", err)
	}

	return nil
}

package chserver

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/civil"
	"github.com/google/uuid"

	"github.com/openrport/userd/server/api/users"
	"github.com/openrport/userd/server/api/users/sqlite"
	"github.com/openrport/userd/share/logger"
)

// DemoUser is inserted at start when storage.seed is enabled.
var DemoUser = users.User{
	ID:         uuid.MustParse("b916577c-2c51-4025-891f-13b0e27b8049"),
	Name:       "Juan Carlos",
	BirthDate:  civil.Date{Year: 1984, Month: time.February, Day: 14},
	CustomData: users.CustomData{Random: 1},
}

// newRepository builds the repository selected by config. The returned close
// function releases backend resources and is never nil.
func newRepository(ctx context.Context, config *Config, l *logger.Logger) (users.Repository, func() error, error) {
	var (
		repo      users.Repository
		closeRepo = func() error { return nil }
	)

	switch config.Storage.Driver {
	case StorageMemory, "":
		repo = users.NewMemoryRepository(
			users.WithLogger(l),
			users.WithPoisonRecovery(config.Storage.RecoverPoisoned),
		)
	case StorageSQLite:
		sqliteRepo, err := sqlite.NewMemory(l)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to init sqlite storage: %w", err)
		}
		repo = sqliteRepo
		closeRepo = sqliteRepo.Close
	default:
		return nil, nil, fmt.Errorf("unknown storage driver %q", config.Storage.Driver)
	}

	if config.Storage.Seed {
		if _, err := repo.Create(ctx, DemoUser); err != nil {
			_ = closeRepo()
			return nil, nil, fmt.Errorf("failed to seed storage: %w", err)
		}
		l.Infof("seeded user %s", DemoUser.ID)
	}

	return repo, closeRepo, nil
}

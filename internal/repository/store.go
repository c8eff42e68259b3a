package repository

import (
	"context"

	"github.com/noah-isme/recordsync/pkg/config"
	"github.com/noah-isme/recordsync/pkg/database"
)

// OpenAttendanceStore returns the record store selected by STORE_DRIVER.
// The Postgres store is migrated before use. The returned func releases the database
// connection and is a no-op for the CSV store.
func OpenAttendanceStore(ctx context.Context, cfg *config.Config) (AttendanceStore, func() error, error) {
	if cfg.Data.StoreDriver != config.StorePostgres {
		return NewCSVAttendanceRepository(cfg.Data.StudentsPath()), func() error { return nil }, nil
	}
	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		return nil, nil, err
	}
	if err := database.Migrate(ctx, db.DB); err != nil {
		_ = db.Close()
		return nil, nil, err
	}
	return NewPostgresAttendanceRepository(db), db.Close, nil
}

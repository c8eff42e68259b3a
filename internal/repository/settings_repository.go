package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/noah-isme/recordsync/internal/models"
)

var settingsColumns = []string{"key", "value", "type"}

// SettingsRepository persists key/value settings in settings.csv.
type SettingsRepository struct {
	table csvTable
	mu    sync.Mutex
}

// NewSettingsRepository binds the repository to path.
func NewSettingsRepository(path string) *SettingsRepository {
	return &SettingsRepository{table: csvTable{path: path, columns: settingsColumns}}
}

// List returns all stored settings ordered by key.
func (r *SettingsRepository) List(ctx context.Context) ([]models.Configuration, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	values, err := r.readLocked()
	if err != nil {
		return nil, err
	}
	return sortedConfigurations(values), nil
}

// Get returns one setting or ErrNotFound.
func (r *SettingsRepository) Get(ctx context.Context, key string) (*models.Configuration, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	values, err := r.readLocked()
	if err != nil {
		return nil, err
	}
	cfg, ok := values[key]
	if !ok {
		return nil, ErrNotFound
	}
	return &cfg, nil
}

// BulkUpsert writes the given settings, keeping any others untouched.
func (r *SettingsRepository) BulkUpsert(ctx context.Context, cfgs []models.Configuration) error {
	if len(cfgs) == 0 {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	values, err := r.readLocked()
	if err != nil {
		return err
	}
	for _, cfg := range cfgs {
		values[cfg.Key] = cfg
	}

	sorted := sortedConfigurations(values)
	rows := make([]map[string]string, 0, len(sorted))
	for _, cfg := range sorted {
		rows = append(rows, map[string]string{"key": cfg.Key, "value": cfg.Value, "type": string(cfg.Type)})
	}
	if _, err := r.table.write(rows); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}
	return nil
}

func (r *SettingsRepository) readLocked() (map[string]models.Configuration, error) {
	rows, err := r.table.read()
	if err != nil {
		return nil, fmt.Errorf("read settings: %w", err)
	}
	values := make(map[string]models.Configuration, len(rows))
	for _, row := range rows {
		if row["key"] == "" {
			continue
		}
		values[row["key"]] = models.Configuration{
			Key:   row["key"],
			Value: row["value"],
			Type:  models.ConfigurationType(row["type"]),
		}
	}
	return values, nil
}

func sortedConfigurations(values map[string]models.Configuration) []models.Configuration {
	out := make([]models.Configuration, 0, len(values))
	for _, cfg := range values {
		out = append(out, cfg)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

package repository

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/noah-isme/recordsync/internal/models"
)

var adminColumns = []string{"id", "username", "password"}

// AdminRepository stores admin credentials in admin.csv.
type AdminRepository struct {
	table csvTable
	mu    sync.Mutex
}

// NewAdminRepository binds the repository to path.
func NewAdminRepository(path string) *AdminRepository {
	return &AdminRepository{table: csvTable{path: path, columns: adminColumns}}
}

// FindByUsername looks the username up case-insensitively.
func (r *AdminRepository) FindByUsername(ctx context.Context, username string) (*models.Admin, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	admins, err := r.readLocked()
	if err != nil {
		return nil, err
	}
	want := strings.ToLower(strings.TrimSpace(username))
	for i := range admins {
		if strings.ToLower(strings.TrimSpace(admins[i].Username)) == want {
			return &admins[i], nil
		}
	}
	return nil, ErrNotFound
}

// Create appends admin with the next numeric id. Usernames are unique
// regardless of case.
func (r *AdminRepository) Create(ctx context.Context, admin *models.Admin) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	admins, err := r.readLocked()
	if err != nil {
		return err
	}
	maxID := 0
	for _, existing := range admins {
		if strings.EqualFold(strings.TrimSpace(existing.Username), strings.TrimSpace(admin.Username)) {
			return ErrDuplicate
		}
		if existing.ID > maxID {
			maxID = existing.ID
		}
	}
	admin.ID = maxID + 1
	admins = append(admins, *admin)

	rows := make([]map[string]string, 0, len(admins))
	for _, a := range admins {
		rows = append(rows, map[string]string{
			"id":       strconv.Itoa(a.ID),
			"username": a.Username,
			"password": a.Password,
		})
	}
	if _, err := r.table.write(rows); err != nil {
		return fmt.Errorf("write admins: %w", err)
	}
	return nil
}

// Count returns the number of registered admins.
func (r *AdminRepository) Count(ctx context.Context) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	admins, err := r.readLocked()
	if err != nil {
		return 0, err
	}
	return len(admins), nil
}

func (r *AdminRepository) readLocked() ([]models.Admin, error) {
	rows, err := r.table.read()
	if err != nil {
		return nil, fmt.Errorf("read admins: %w", err)
	}
	admins := make([]models.Admin, 0, len(rows))
	for _, row := range rows {
		id, _ := strconv.Atoi(strings.TrimSpace(row["id"]))
		admins = append(admins, models.Admin{
			ID:       id,
			Username: row["username"],
			Password: row["password"],
		})
	}
	return admins, nil
}

package database

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/secnex/admin-bootstrap/models"
)

type RoleRepository struct {
	r *Runner
}

func NewRoleRepository(r *Runner) *RoleRepository {
	return &RoleRepository{r: r}
}

func scanRole(s Scanner) (models.Role, error) {
	var role models.Role
	err := s.Scan(&role.ID, &role.Name, &role.Valid, &role.Enabled, &role.CreatedAt)
	return role, err
}

func (rr *RoleRepository) FindByName(ctx context.Context, name string) (*models.Role, error) {
	role, err := QueryOne(ctx, rr.r, scanRole, `
		SELECT id, name, valid, enabled, created_at FROM roles WHERE name = $1
	`, name)
	if err != nil {
		return nil, err
	}
	return &role, nil
}

func (rr *RoleRepository) List(ctx context.Context) ([]models.Role, error) {
	return QueryList(ctx, rr.r, scanRole, `
		SELECT id, name, valid, enabled, created_at FROM roles ORDER BY name ASC
	`)
}

// Save inserts the role, assigning an id and timestamp when missing.
func (rr *RoleRepository) Save(ctx context.Context, role *models.Role) error {
	if role.ID == "" {
		role.ID = uuid.NewString()
	}
	if role.CreatedAt.IsZero() {
		role.CreatedAt = time.Now().UTC()
	}
	_, err := rr.r.Save(ctx, `
		INSERT INTO roles (id, name, valid, enabled, created_at) VALUES ($1, $2, $3, $4, $5)
	`, role.ID, role.Name, role.Valid, role.Enabled, role.CreatedAt)
	return err
}

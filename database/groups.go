package database

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/secnex/admin-bootstrap/models"
)

type GroupRepository struct {
	r *Runner
}

func NewGroupRepository(r *Runner) *GroupRepository {
	return &GroupRepository{r: r}
}

func scanGroup(s Scanner) (models.Group, error) {
	var group models.Group
	err := s.Scan(&group.ID, &group.Name, &group.Valid, &group.Enabled, &group.CreatedAt)
	return group, err
}

func (g *GroupRepository) FindByName(ctx context.Context, name string) (*models.Group, error) {
	group, err := QueryOne(ctx, g.r, scanGroup, `
		SELECT id, name, valid, enabled, created_at FROM groups WHERE name = $1
	`, name)
	if err != nil {
		return nil, err
	}
	return &group, nil
}

func (g *GroupRepository) List(ctx context.Context) ([]models.Group, error) {
	return QueryList(ctx, g.r, scanGroup, `
		SELECT id, name, valid, enabled, created_at FROM groups ORDER BY name ASC
	`)
}

func (g *GroupRepository) Save(ctx context.Context, group *models.Group) error {
	if group.ID == "" {
		group.ID = uuid.NewString()
	}
	if group.CreatedAt.IsZero() {
		group.CreatedAt = time.Now().UTC()
	}
	_, err := g.r.Save(ctx, `
		INSERT INTO groups (id, name, valid, enabled, created_at) VALUES ($1, $2, $3, $4, $5)
	`, group.ID, group.Name, group.Valid, group.Enabled, group.CreatedAt)
	return err
}

package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/secnex/admin-bootstrap/logger"
	"github.com/secnex/admin-bootstrap/models"
	"golang.org/x/crypto/bcrypt"
)

var ErrInvalidCredentials = errors.New("invalid credentials")

type UserRepository struct {
	r *Runner
}

func NewUserRepository(r *Runner) *UserRepository {
	return &UserRepository{r: r}
}

func scanUser(s Scanner) (models.User, error) {
	var u models.User
	err := s.Scan(&u.ID, &u.LoginName, &u.UserName, &u.PasswordHash, &u.Email, &u.Valid, &u.Enabled, &u.CreatedAt)
	return u, err
}

// FindByLoginName loads a user together with its roles and groups.
func (u *UserRepository) FindByLoginName(ctx context.Context, loginName string) (*models.User, error) {
	user, err := QueryOne(ctx, u.r, scanUser, `
		SELECT id, login_name, user_name, password_hash, email, valid, enabled, created_at
		FROM users
		WHERE login_name = $1
	`, loginName)
	if err != nil {
		return nil, err
	}

	user.Roles, err = QueryList(ctx, u.r, scanRole, `
		SELECT r.id, r.name, r.valid, r.enabled, r.created_at
		FROM roles r
		JOIN user_roles ur ON r.id = ur.role_id
		WHERE ur.user_id = $1
		ORDER BY r.name ASC
	`, user.ID)
	if err != nil {
		return nil, fmt.Errorf("load roles of %s: %w", loginName, err)
	}

	user.Groups, err = QueryList(ctx, u.r, scanGroup, `
		SELECT g.id, g.name, g.valid, g.enabled, g.created_at
		FROM groups g
		JOIN user_groups ug ON g.id = ug.group_id
		WHERE ug.user_id = $1
		ORDER BY g.name ASC
	`, user.ID)
	if err != nil {
		return nil, fmt.Errorf("load groups of %s: %w", loginName, err)
	}

	return &user, nil
}

// Save inserts the user and its role and group links in one transaction.
func (u *UserRepository) Save(ctx context.Context, user *models.User) error {
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}

	return u.r.InTx(ctx, func(tx *Runner) error {
		if _, err := tx.Save(ctx, `
			INSERT INTO users (id, login_name, user_name, password_hash, email, valid, enabled, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		`, user.ID, user.LoginName, user.UserName, user.PasswordHash, user.Email, user.Valid, user.Enabled, user.CreatedAt); err != nil {
			return fmt.Errorf("insert user %s: %w", user.LoginName, err)
		}

		roleLinks := make([][]any, 0, len(user.Roles))
		for _, role := range user.Roles {
			roleLinks = append(roleLinks, []any{user.ID, role.ID})
		}
		if _, err := tx.Batch(ctx, `INSERT INTO user_roles (user_id, role_id) VALUES ($1, $2)`, roleLinks); err != nil {
			return fmt.Errorf("link roles of %s: %w", user.LoginName, err)
		}

		groupLinks := make([][]any, 0, len(user.Groups))
		for _, group := range user.Groups {
			groupLinks = append(groupLinks, []any{user.ID, group.ID})
		}
		if _, err := tx.Batch(ctx, `INSERT INTO user_groups (user_id, group_id) VALUES ($1, $2)`, groupLinks); err != nil {
			return fmt.Errorf("link groups of %s: %w", user.LoginName, err)
		}
		return nil
	})
}

// ValidateCredentials returns the user when the password matches and the
// account is both valid and enabled.
func (u *UserRepository) ValidateCredentials(ctx context.Context, loginName, password string) (*models.User, error) {
	logger.Debug("Validating credentials", map[string]interface{}{"login_name": loginName})

	user, err := u.FindByLoginName(ctx, loginName)
	if errors.Is(err, models.ErrNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}

	if !user.Valid || !user.Enabled {
		logger.Warn("Login attempt for disabled user", map[string]interface{}{"login_name": loginName})
		return nil, ErrInvalidCredentials
	}

	if !checkPasswordHash(password, user.PasswordHash) {
		logger.Warn("Invalid password attempt", map[string]interface{}{"login_name": loginName})
		return nil, ErrInvalidCredentials
	}

	return user, nil
}

func checkPasswordHash(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

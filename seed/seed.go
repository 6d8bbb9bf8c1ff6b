// Package seed writes the default tree roots, menu trees, roles, groups and
// administrator account. Every step checks for existing rows first, so Run
// may be called on every start.
package seed

import (
	"context"
	"errors"
	"fmt"

	"github.com/secnex/admin-bootstrap/logger"
	"github.com/secnex/admin-bootstrap/models"
	"golang.org/x/crypto/bcrypt"
)

type TreeStore interface {
	FindTreeTypes(ctx context.Context) ([]models.TreeType, error)
	FindByName(ctx context.Context, name string) ([]models.TreeNode, error)
	FindRoot(ctx context.Context, treeType models.TreeType) (*models.TreeNode, error)
	Save(ctx context.Context, node *models.TreeNode) error
	SaveAll(ctx context.Context, nodes []*models.TreeNode) error
}

type UserStore interface {
	FindByLoginName(ctx context.Context, loginName string) (*models.User, error)
	Save(ctx context.Context, user *models.User) error
}

type RoleStore interface {
	FindByName(ctx context.Context, name string) (*models.Role, error)
	Save(ctx context.Context, role *models.Role) error
}

type GroupStore interface {
	FindByName(ctx context.Context, name string) (*models.Group, error)
	Save(ctx context.Context, group *models.Group) error
}

type Options struct {
	// AdminPassword replaces the password from the definitions when set.
	AdminPassword string
	BcryptCost    int
}

type Initializer struct {
	trees  TreeStore
	users  UserStore
	roles  RoleStore
	groups GroupStore
	defs   *Definitions
	opts   Options
}

func New(trees TreeStore, users UserStore, roles RoleStore, groups GroupStore, defs *Definitions, opts Options) *Initializer {
	if opts.BcryptCost == 0 {
		opts.BcryptCost = bcrypt.DefaultCost
	}
	return &Initializer{
		trees:  trees,
		users:  users,
		roles:  roles,
		groups: groups,
		defs:   defs,
		opts:   opts,
	}
}

// Run seeds everything that is missing and stops at the first failure.
func (i *Initializer) Run(ctx context.Context) error {
	if err := i.ensureRoots(ctx); err != nil {
		return fmt.Errorf("init tree roots: %w", err)
	}

	for _, tree := range i.defs.Trees {
		if err := i.ensureTree(ctx, tree); err != nil {
			return fmt.Errorf("init %s tree: %w", tree.Type, err)
		}
	}

	if err := i.ensureAdmin(ctx); err != nil {
		return fmt.Errorf("init admin user: %w", err)
	}
	return nil
}

func (i *Initializer) ensureRoots(ctx context.Context) error {
	existing, err := i.trees.FindTreeTypes(ctx)
	if err != nil {
		return err
	}

	present := make(map[models.TreeType]bool, len(existing))
	for _, t := range existing {
		present[t] = true
	}

	for _, t := range models.TreeTypes() {
		if present[t] {
			continue
		}
		logger.Info("Creating tree root node", map[string]interface{}{"type": t})
		if err := i.trees.Save(ctx, models.NewTreeNode(t, t.RootName(), 0, true, nil)); err != nil {
			return fmt.Errorf("save %s root: %w", t, err)
		}
	}
	return nil
}

func (i *Initializer) ensureTree(ctx context.Context, tree TreeDefinition) error {
	found, err := i.trees.FindByName(ctx, tree.Marker)
	if err != nil {
		return err
	}
	for _, node := range found {
		if node.Type == tree.Type {
			logger.Info("Tree already initialized", map[string]interface{}{"type": tree.Type, "marker": tree.Marker})
			return nil
		}
	}

	root, err := i.trees.FindRoot(ctx, tree.Type)
	if errors.Is(err, models.ErrNotFound) {
		return fmt.Errorf("no root node for %s", tree.Type)
	}
	if err != nil {
		return err
	}

	nodes := buildNodes(tree.Type, tree.Nodes, root, nil)
	logger.Info("Initializing tree", map[string]interface{}{"type": tree.Type, "nodes": len(nodes)})
	return i.trees.SaveAll(ctx, nodes)
}

// buildNodes flattens defs below parent, parents ahead of their children.
func buildNodes(t models.TreeType, defs []NodeDefinition, parent *models.TreeNode, out []*models.TreeNode) []*models.TreeNode {
	for pos, def := range defs {
		index := pos
		if def.Index != nil {
			index = *def.Index
		}
		node := models.NewTreeNode(t, def.Name, index, len(def.Children) > 0, parent)
		node.CSS = def.CSS
		node.URL = def.URL
		out = append(out, node)
		out = buildNodes(t, def.Children, node, out)
	}
	return out
}

func (i *Initializer) ensureAdmin(ctx context.Context) error {
	admin := i.defs.Admin

	_, err := i.users.FindByLoginName(ctx, admin.LoginName)
	if err == nil {
		logger.Info("Admin user already initialized", map[string]interface{}{"login_name": admin.LoginName})
		return nil
	}
	if !errors.Is(err, models.ErrNotFound) {
		return err
	}

	logger.Info("Initializing admin user", map[string]interface{}{"login_name": admin.LoginName})

	password := admin.Password
	if i.opts.AdminPassword != "" {
		password = i.opts.AdminPassword
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), i.opts.BcryptCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	user := &models.User{
		LoginName:    admin.LoginName,
		UserName:     admin.UserName,
		PasswordHash: string(hash),
		Email:        admin.Email,
		Valid:        true,
		Enabled:      true,
	}

	roles, err := i.ensureRoles(ctx)
	if err != nil {
		return err
	}
	if role, ok := roles[admin.Role]; ok {
		user.AddRole(role)
	}

	groups, err := i.ensureGroups(ctx)
	if err != nil {
		return err
	}
	if group, ok := groups[admin.Group]; ok {
		user.AddGroup(group)
	}

	return i.users.Save(ctx, user)
}

// ensureRoles inserts the defined roles that do not exist yet and returns
// all of them by name.
func (i *Initializer) ensureRoles(ctx context.Context) (map[string]models.Role, error) {
	out := make(map[string]models.Role, len(i.defs.Roles))
	for _, entry := range i.defs.Roles {
		role, err := i.roles.FindByName(ctx, entry.Name)
		if err == nil {
			out[entry.Name] = *role
			continue
		}
		if !errors.Is(err, models.ErrNotFound) {
			return nil, err
		}

		role = &models.Role{Name: entry.Name, Valid: true, Enabled: true}
		if err := i.roles.Save(ctx, role); err != nil {
			return nil, fmt.Errorf("save role %s: %w", entry.Name, err)
		}
		logger.Info("Created role", map[string]interface{}{"name": entry.Name})
		out[entry.Name] = *role
	}
	return out, nil
}

func (i *Initializer) ensureGroups(ctx context.Context) (map[string]models.Group, error) {
	out := make(map[string]models.Group, len(i.defs.Groups))
	for _, entry := range i.defs.Groups {
		group, err := i.groups.FindByName(ctx, entry.Name)
		if err == nil {
			out[entry.Name] = *group
			continue
		}
		if !errors.Is(err, models.ErrNotFound) {
			return nil, err
		}

		group = &models.Group{Name: entry.Name, Valid: true, Enabled: true}
		if err := i.groups.Save(ctx, group); err != nil {
			return nil, fmt.Errorf("save group %s: %w", entry.Name, err)
		}
		logger.Info("Created group", map[string]interface{}{"name": entry.Name})
		out[entry.Name] = *group
	}
	return out, nil
}

package database

import (
	"context"
	"fmt"
	"time"

	"github.com/secnex/admin-bootstrap/logger"
	"github.com/secnex/admin-bootstrap/models"
)

const treeColumns = "id, tree_type, name, sort_index, is_parent, parent_id, css, url, created_at"

const insertTreeNode = `
	INSERT INTO tree_nodes (id, tree_type, name, sort_index, is_parent, parent_id, css, url, created_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
`

var treeSortColumns = map[string]string{
	"id":         "id",
	"name":       "name",
	"index":      "sort_index",
	"created_at": "created_at",
}

var defaultTreeOrder = []Order{Asc("sort_index"), Asc("created_at")}

type TreeRepository struct {
	r *Runner
}

func NewTreeRepository(r *Runner) *TreeRepository {
	return &TreeRepository{r: r}
}

func scanTreeNode(s Scanner) (models.TreeNode, error) {
	var (
		n        models.TreeNode
		treeType string
		parentID *string
	)
	if err := s.Scan(&n.ID, &treeType, &n.Name, &n.Index, &n.IsParent, &parentID, &n.CSS, &n.URL, &n.CreatedAt); err != nil {
		return n, err
	}
	n.Type = models.TreeType(treeType)
	n.ParentID = parentID
	return n, nil
}

func scanTreeType(s Scanner) (models.TreeType, error) {
	var t string
	err := s.Scan(&t)
	return models.TreeType(t), err
}

// FindTreeTypes lists the types that already have a root node.
func (t *TreeRepository) FindTreeTypes(ctx context.Context) ([]models.TreeType, error) {
	return QueryList(ctx, t.r, scanTreeType, `
		SELECT DISTINCT tree_type FROM tree_nodes WHERE parent_id IS NULL
	`)
}

func (t *TreeRepository) FindByName(ctx context.Context, name string) ([]models.TreeNode, error) {
	orderBy, err := OrderBy(defaultTreeOrder...)
	if err != nil {
		return nil, err
	}
	return QueryList(ctx, t.r, scanTreeNode,
		"SELECT "+treeColumns+" FROM tree_nodes WHERE name = $1 "+orderBy, name)
}

// FindRoot returns the oldest root of the given type, or models.ErrNotFound.
func (t *TreeRepository) FindRoot(ctx context.Context, treeType models.TreeType) (*models.TreeNode, error) {
	node, err := QueryOne(ctx, t.r, scanTreeNode,
		"SELECT "+treeColumns+" FROM tree_nodes WHERE tree_type = $1 AND parent_id IS NULL ORDER BY created_at ASC LIMIT 1",
		string(treeType))
	if err != nil {
		return nil, err
	}
	return &node, nil
}

// FindByType returns every node of a tree, sorted by the given public
// properties (id, name, index, created_at) or by index when none are given.
func (t *TreeRepository) FindByType(ctx context.Context, treeType models.TreeType, orders ...Order) ([]models.TreeNode, error) {
	orderBy, err := t.orderBy(orders)
	if err != nil {
		return nil, err
	}
	return QueryList(ctx, t.r, scanTreeNode,
		"SELECT "+treeColumns+" FROM tree_nodes WHERE tree_type = $1 "+orderBy, string(treeType))
}

func (t *TreeRepository) Children(ctx context.Context, parentID string, orders ...Order) ([]models.TreeNode, error) {
	orderBy, err := t.orderBy(orders)
	if err != nil {
		return nil, err
	}
	return QueryList(ctx, t.r, scanTreeNode,
		"SELECT "+treeColumns+" FROM tree_nodes WHERE parent_id = $1 "+orderBy, parentID)
}

func (t *TreeRepository) CountByType(ctx context.Context, treeType models.TreeType) (int, error) {
	return t.r.Count(ctx, `SELECT COUNT(*) FROM tree_nodes WHERE tree_type = $1`, string(treeType))
}

// Summary returns the node count of every tree type present.
func (t *TreeRepository) Summary(ctx context.Context) (map[models.TreeType]int, error) {
	rows, err := t.r.QueryMaps(ctx, `
		SELECT tree_type, COUNT(*) AS nodes FROM tree_nodes GROUP BY tree_type
	`)
	if err != nil {
		return nil, err
	}

	summary := make(map[models.TreeType]int, len(rows))
	for _, row := range rows {
		name, _ := row["tree_type"].(string)
		n, err := toInt(row["nodes"])
		if err != nil {
			return nil, err
		}
		summary[models.TreeType(name)] = n
	}
	return summary, nil
}

func (t *TreeRepository) orderBy(orders []Order) (string, error) {
	if len(orders) == 0 {
		return OrderBy(defaultTreeOrder...)
	}
	mapped, err := mapOrders(treeSortColumns, orders)
	if err != nil {
		return "", err
	}
	return OrderBy(mapped...)
}

func (t *TreeRepository) Save(ctx context.Context, node *models.TreeNode) error {
	stampTreeNode(node)
	_, err := t.r.Save(ctx, insertTreeNode, treeNodeArgs(node)...)
	return err
}

// SaveAll inserts the nodes in one transaction. Parents are written before
// their children regardless of input order.
func (t *TreeRepository) SaveAll(ctx context.Context, nodes []*models.TreeNode) error {
	sorted, err := parentsFirst(nodes)
	if err != nil {
		return err
	}

	params := make([][]any, 0, len(sorted))
	for _, node := range sorted {
		stampTreeNode(node)
		params = append(params, treeNodeArgs(node))
	}

	if _, err := t.r.Batch(ctx, insertTreeNode, params); err != nil {
		return fmt.Errorf("insert tree nodes: %w", err)
	}
	logger.Debug("Saved tree nodes", map[string]interface{}{"count": len(sorted)})
	return nil
}

func stampTreeNode(node *models.TreeNode) {
	if node.CreatedAt.IsZero() {
		node.CreatedAt = time.Now().UTC()
	}
}

func treeNodeArgs(n *models.TreeNode) []any {
	var parentID any
	if n.ParentID != nil {
		parentID = *n.ParentID
	}
	return []any{n.ID, string(n.Type), n.Name, n.Index, n.IsParent, parentID, n.CSS, n.URL, n.CreatedAt}
}

// parentsFirst orders nodes so that a node never precedes a parent that is
// part of the same slice. Relative order is otherwise kept.
func parentsFirst(nodes []*models.TreeNode) ([]*models.TreeNode, error) {
	pending := make(map[string]bool, len(nodes))
	for _, n := range nodes {
		pending[n.ID] = true
	}

	sorted := make([]*models.TreeNode, 0, len(nodes))
	remaining := nodes
	for len(remaining) > 0 {
		var next []*models.TreeNode
		for _, n := range remaining {
			if n.ParentID != nil && pending[*n.ParentID] && *n.ParentID != n.ID {
				next = append(next, n)
				continue
			}
			if n.ParentID != nil && *n.ParentID == n.ID {
				return nil, fmt.Errorf("tree node %s is its own parent", n.ID)
			}
			sorted = append(sorted, n)
			delete(pending, n.ID)
		}
		if len(next) == len(remaining) {
			return nil, fmt.Errorf("tree nodes form a cycle (%d unresolved)", len(next))
		}
		remaining = next
	}
	return sorted, nil
}

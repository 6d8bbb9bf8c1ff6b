package database

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/secnex/admin-bootstrap/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var treeCols = []string{"id", "tree_type", "name", "sort_index", "is_parent", "parent_id", "css", "url", "created_at"}

func TestFindTreeTypes(t *testing.T) {
	r, mock := newMock(t)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT DISTINCT tree_type FROM tree_nodes WHERE parent_id IS NULL")).
		WillReturnRows(sqlmock.NewRows([]string{"tree_type"}).AddRow("Menu").AddRow("Standard"))

	types, err := NewTreeRepository(r).FindTreeTypes(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []models.TreeType{models.TreeTypeMenu, models.TreeTypeStandard}, types)
}

func TestFindRoot(t *testing.T) {
	r, mock := newMock(t)
	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta("WHERE tree_type = $1 AND parent_id IS NULL")).
		WithArgs("Menu").
		WillReturnRows(sqlmock.NewRows(treeCols).AddRow("root-id", "Menu", "root_Menu", 0, true, nil, "", "", now))

	root, err := NewTreeRepository(r).FindRoot(context.Background(), models.TreeTypeMenu)
	require.NoError(t, err)
	assert.Equal(t, "root_Menu", root.Name)
	assert.True(t, root.IsRoot())
	assert.True(t, root.IsParent)
}

func TestFindRootMissing(t *testing.T) {
	r, mock := newMock(t)
	mock.ExpectQuery("FROM tree_nodes").WithArgs("DepartMent").WillReturnRows(sqlmock.NewRows(treeCols))

	_, err := NewTreeRepository(r).FindRoot(context.Background(), models.TreeTypeDepartment)
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestFindByName(t *testing.T) {
	r, mock := newMock(t)
	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta("FROM tree_nodes WHERE name = $1 ORDER BY sort_index ASC, created_at ASC")).
		WithArgs("菜单管理").
		WillReturnRows(sqlmock.NewRows(treeCols).
			AddRow("n1", "Menu", "菜单管理", 0, true, "p1", "menu-icon fa fa-sitemap", "#", now))

	nodes, err := NewTreeRepository(r).FindByName(context.Background(), "菜单管理")
	require.NoError(t, err)
	require.Len(t, nodes, 1)
	require.NotNil(t, nodes[0].ParentID)
	assert.Equal(t, "p1", *nodes[0].ParentID)
	assert.Equal(t, "menu-icon fa fa-sitemap", nodes[0].CSS)
}

func TestFindByTypeMapsSortProperties(t *testing.T) {
	r, mock := newMock(t)
	mock.ExpectQuery(regexp.QuoteMeta("WHERE tree_type = $1 ORDER BY name DESC, sort_index ASC")).
		WithArgs("Standard").
		WillReturnRows(sqlmock.NewRows(treeCols))

	_, err := NewTreeRepository(r).FindByType(context.Background(), models.TreeTypeStandard, Desc("name"), Asc("index"))
	assert.NoError(t, err)
}

func TestFindByTypeRejectsUnknownSort(t *testing.T) {
	r, _ := newMock(t)

	_, err := NewTreeRepository(r).FindByType(context.Background(), models.TreeTypeMenu, Asc("url"))
	assert.Error(t, err)
}

func TestChildren(t *testing.T) {
	r, mock := newMock(t)
	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta("WHERE parent_id = $1 ORDER BY sort_index ASC, created_at ASC")).
		WithArgs("p1").
		WillReturnRows(sqlmock.NewRows(treeCols).
			AddRow("c1", "Menu", "用户", 0, false, "p1", "", "admin/jqgrid-user", now).
			AddRow("c2", "Menu", "用户组", 1, false, "p1", "", "admin/jqgrid-group", now))

	children, err := NewTreeRepository(r).Children(context.Background(), "p1")
	require.NoError(t, err)
	require.Len(t, children, 2)
	assert.Equal(t, "admin/jqgrid-group", children[1].URL)
}

func TestSaveAllWritesParentsFirst(t *testing.T) {
	r, mock := newMock(t)
	root := models.NewTreeNode(models.TreeTypeMenu, "root_Menu", 0, true, nil)
	system := models.NewTreeNode(models.TreeTypeMenu, "系统管理", 0, true, root)
	menus := models.NewTreeNode(models.TreeTypeMenu, "菜单管理", 0, true, system)
	menus.CSS = "menu-icon fa fa-sitemap"
	menus.URL = "#"

	mock.ExpectBegin()
	prep := mock.ExpectPrepare("INSERT INTO tree_nodes")
	prep.ExpectExec().
		WithArgs(root.ID, "Menu", "root_Menu", 0, true, nil, "", "", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	prep.ExpectExec().
		WithArgs(system.ID, "Menu", "系统管理", 0, true, root.ID, "", "", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	prep.ExpectExec().
		WithArgs(menus.ID, "Menu", "菜单管理", 0, true, system.ID, "menu-icon fa fa-sitemap", "#", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := NewTreeRepository(r).SaveAll(context.Background(), []*models.TreeNode{menus, system, root})
	require.NoError(t, err)
	assert.False(t, menus.CreatedAt.IsZero())
}

func TestParentsFirstDetectsCycle(t *testing.T) {
	a := models.NewTreeNode(models.TreeTypeMenu, "a", 0, true, nil)
	b := models.NewTreeNode(models.TreeTypeMenu, "b", 0, true, a)
	a.ParentID = &b.ID

	_, err := parentsFirst([]*models.TreeNode{a, b})
	assert.Error(t, err)

	self := models.NewTreeNode(models.TreeTypeMenu, "self", 0, false, nil)
	self.ParentID = &self.ID
	_, err = parentsFirst([]*models.TreeNode{self})
	assert.Error(t, err)
}

func TestCountByType(t *testing.T) {
	r, mock := newMock(t)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM tree_nodes WHERE tree_type = $1")).
		WithArgs("PageResource").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(int64(17)))

	n, err := NewTreeRepository(r).CountByType(context.Background(), models.TreeTypePageResource)
	require.NoError(t, err)
	assert.Equal(t, 17, n)
}

func TestSummary(t *testing.T) {
	r, mock := newMock(t)
	mock.ExpectQuery("GROUP BY tree_type").
		WillReturnRows(sqlmock.NewRows([]string{"tree_type", "nodes"}).
			AddRow("Menu", int64(31)).
			AddRow([]byte("Standard"), int64(20)))

	summary, err := NewTreeRepository(r).Summary(context.Background())
	require.NoError(t, err)
	assert.Equal(t, map[models.TreeType]int{models.TreeTypeMenu: 31, models.TreeTypeStandard: 20}, summary)
}

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
	"golang.org/x/crypto/bcrypt"
)

var (
	userCols  = []string{"id", "login_name", "user_name", "password_hash", "email", "valid", "enabled", "created_at"}
	namedCols = []string{"id", "name", "valid", "enabled", "created_at"}
)

func expectAdmin(mock sqlmock.Sqlmock, hash string, enabled bool) {
	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta("FROM users WHERE login_name = $1")).
		WithArgs("admin").
		WillReturnRows(sqlmock.NewRows(userCols).
			AddRow("u1", "admin", "系统管理员", hash, "admin@mail.com", true, enabled, now))
	mock.ExpectQuery("JOIN user_roles").WithArgs("u1").
		WillReturnRows(sqlmock.NewRows(namedCols).AddRow("r1", "系统管理员角色", true, true, now))
	mock.ExpectQuery("JOIN user_groups").WithArgs("u1").
		WillReturnRows(sqlmock.NewRows(namedCols).AddRow("g1", "系统管理员组", true, true, now))
}

func TestFindByLoginName(t *testing.T) {
	r, mock := newMock(t)
	expectAdmin(mock, "hash", true)

	user, err := NewUserRepository(r).FindByLoginName(context.Background(), "admin")
	require.NoError(t, err)
	assert.Equal(t, "系统管理员", user.UserName)
	require.Len(t, user.Roles, 1)
	assert.Equal(t, "系统管理员角色", user.Roles[0].Name)
	require.Len(t, user.Groups, 1)
	assert.Equal(t, "系统管理员组", user.Groups[0].Name)
}

func TestFindByLoginNameMissing(t *testing.T) {
	r, mock := newMock(t)
	mock.ExpectQuery("FROM users").WithArgs("nobody").WillReturnRows(sqlmock.NewRows(userCols))

	_, err := NewUserRepository(r).FindByLoginName(context.Background(), "nobody")
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestSaveUserLinksRolesAndGroups(t *testing.T) {
	r, mock := newMock(t)
	user := &models.User{LoginName: "admin", UserName: "系统管理员", PasswordHash: "hash", Email: "admin@mail.com", Valid: true, Enabled: true}
	user.AddRole(models.Role{ID: "r1"})
	user.AddGroup(models.Group{ID: "g1"})
	user.AddGroup(models.Group{ID: "g2"})

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO users").
		WithArgs(sqlmock.AnyArg(), "admin", "系统管理员", "hash", "admin@mail.com", true, true, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	roles := mock.ExpectPrepare("INSERT INTO user_roles")
	roles.ExpectExec().WithArgs(sqlmock.AnyArg(), "r1").WillReturnResult(sqlmock.NewResult(0, 1))
	groups := mock.ExpectPrepare("INSERT INTO user_groups")
	groups.ExpectExec().WithArgs(sqlmock.AnyArg(), "g1").WillReturnResult(sqlmock.NewResult(0, 1))
	groups.ExpectExec().WithArgs(sqlmock.AnyArg(), "g2").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, NewUserRepository(r).Save(context.Background(), user))
	assert.NotEmpty(t, user.ID)
}

func TestValidateCredentials(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("sysadmin"), bcrypt.MinCost)
	require.NoError(t, err)

	t.Run("match", func(t *testing.T) {
		r, mock := newMock(t)
		expectAdmin(mock, string(hash), true)

		user, err := NewUserRepository(r).ValidateCredentials(context.Background(), "admin", "sysadmin")
		require.NoError(t, err)
		assert.Equal(t, "admin", user.LoginName)
	})

	t.Run("wrong password", func(t *testing.T) {
		r, mock := newMock(t)
		expectAdmin(mock, string(hash), true)

		_, err := NewUserRepository(r).ValidateCredentials(context.Background(), "admin", "guess")
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("disabled", func(t *testing.T) {
		r, mock := newMock(t)
		expectAdmin(mock, string(hash), false)

		_, err := NewUserRepository(r).ValidateCredentials(context.Background(), "admin", "sysadmin")
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("unknown user", func(t *testing.T) {
		r, mock := newMock(t)
		mock.ExpectQuery("FROM users").WithArgs("ghost").WillReturnRows(sqlmock.NewRows(userCols))

		_, err := NewUserRepository(r).ValidateCredentials(context.Background(), "ghost", "x")
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})
}

func TestRoleAndGroupRepositories(t *testing.T) {
	r, mock := newMock(t)
	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta("FROM roles WHERE name = $1")).WithArgs("用户角色").
		WillReturnRows(sqlmock.NewRows(namedCols).AddRow("r2", "用户角色", true, true, now))
	mock.ExpectExec("INSERT INTO groups").
		WithArgs(sqlmock.AnyArg(), "用户组", true, true, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(regexp.QuoteMeta("FROM groups ORDER BY name ASC")).
		WillReturnRows(sqlmock.NewRows(namedCols).AddRow("g2", "用户组", true, true, now))

	role, err := NewRoleRepository(r).FindByName(context.Background(), "用户角色")
	require.NoError(t, err)
	assert.Equal(t, "r2", role.ID)

	group := &models.Group{Name: "用户组", Valid: true, Enabled: true}
	require.NoError(t, NewGroupRepository(r).Save(context.Background(), group))
	assert.NotEmpty(t, group.ID)

	groups, err := NewGroupRepository(r).List(context.Background())
	require.NoError(t, err)
	require.Len(t, groups, 1)
	assert.Equal(t, "用户组", groups[0].Name)
}

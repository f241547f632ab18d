package internal

import (
	"context"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lychee-technology/classifieds"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func userRows(users ...classifieds.User) *pgxmock.Rows {
	rows := pgxmock.NewRows([]string{"id", "name", "email", "role", "phone_number", "created_at"})
	for _, u := range users {
		rows.AddRow(u.ID, u.Name, u.Email, string(u.Role), u.PhoneNumber, u.CreatedAt)
	}
	return rows
}

func testUser() classifieds.User {
	return classifieds.User{
		ID:        testAuthorID,
		Name:      "Jonas Jonaitis",
		Email:     "jonas@example.com",
		Role:      classifieds.RoleUser,
		CreatedAt: testNow,
	}
}

func expectUserByID(mock pgxmock.PgxPoolIface, users ...classifieds.User) {
	id := testAuthorID
	if len(users) > 0 {
		id = users[0].ID
	}
	mock.ExpectQuery(`^SELECT id, name, email, role, phone_number, created_at FROM "users" WHERE id = \$1$`).
		WithArgs(id).
		WillReturnRows(userRows(users...))
}

func TestListUsersRequiresElevatedRole(t *testing.T) {
	mock, repo := newMockRepository(t)
	manager := NewUserManager(repo, nil)

	_, err := manager.ListUsers(context.Background(), authorActor)
	require.Error(t, err)
	assert.True(t, classifieds.IsForbidden(err))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestListUsers(t *testing.T) {
	mock, repo := newMockRepository(t)
	manager := NewUserManager(repo, nil)
	moderator := classifieds.User{ID: testStrangerID, Name: "Petras Petraitis", Email: "petras@example.com", Role: classifieds.RoleModerator, CreatedAt: testNow}

	mock.ExpectQuery(`^SELECT id, name, email, role, phone_number, created_at FROM "users" ORDER BY name, id$`).
		WillReturnRows(userRows(testUser(), moderator))

	users, err := manager.ListUsers(context.Background(), moderatorActor)
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
	require.Len(t, users, 2)
	assert.Equal(t, testUser(), users[0])
	assert.Equal(t, classifieds.RoleModerator, users[1].Role)
}

func TestUpdateProfileTrimsPhoneNumber(t *testing.T) {
	mock, repo := newMockRepository(t)
	manager := NewUserManager(repo, nil)
	updated := testUser()
	updated.PhoneNumber = ptr("+370 600 00000")

	mock.ExpectQuery(`^UPDATE "users" SET phone_number = \$2 WHERE id = \$1 RETURNING id, name, email, role, phone_number, created_at$`).
		WithArgs(testAuthorID, ptr("+370 600 00000")).
		WillReturnRows(userRows(updated))

	user, err := manager.UpdateProfile(context.Background(), authorActor, &classifieds.UserProfilePatch{PhoneNumber: ptr("  +370 600 00000 ")})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
	assert.Equal(t, &updated, user)
}

func TestUpdateProfileBlankPhoneNumberClears(t *testing.T) {
	mock, repo := newMockRepository(t)
	manager := NewUserManager(repo, nil)

	mock.ExpectQuery(`^UPDATE "users" SET phone_number = \$2`).
		WithArgs(testAuthorID, (*string)(nil)).
		WillReturnRows(userRows(testUser()))

	user, err := manager.UpdateProfile(context.Background(), authorActor, &classifieds.UserProfilePatch{PhoneNumber: ptr(" ")})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
	assert.Nil(t, user.PhoneNumber)
}

func TestUpdateProfileWithoutChangesReturnsStoredUser(t *testing.T) {
	mock, repo := newMockRepository(t)
	manager := NewUserManager(repo, nil)
	expectUserByID(mock, testUser())

	user, err := manager.UpdateProfile(context.Background(), authorActor, &classifieds.UserProfilePatch{})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
	assert.Equal(t, testAuthorID, user.ID)
}

func TestUpdateProfileRejectsLongPhoneNumber(t *testing.T) {
	mock, repo := newMockRepository(t)
	manager := NewUserManager(repo, nil)

	_, err := manager.UpdateProfile(context.Background(), authorActor, &classifieds.UserProfilePatch{PhoneNumber: ptr(strings.Repeat("1", maxPhoneNumberLength+1))})
	require.Error(t, err)
	assert.True(t, classifieds.IsValidation(err))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateProfileUnknownUser(t *testing.T) {
	mock, repo := newMockRepository(t)
	manager := NewUserManager(repo, nil)

	mock.ExpectQuery(`^UPDATE "users"`).
		WithArgs(testAuthorID, ptr("+37060000000")).
		WillReturnRows(userRows())

	_, err := manager.UpdateProfile(context.Background(), authorActor, &classifieds.UserProfilePatch{PhoneNumber: ptr("+37060000000")})
	require.Error(t, err)
	assert.Equal(t, classifieds.ErrCodeUserNotFound, classifieds.ErrorCodeOf(err))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteUserRequiresAdmin(t *testing.T) {
	mock, repo := newMockRepository(t)
	manager := NewUserManager(repo, nil)

	err := manager.DeleteUser(context.Background(), moderatorActor, testAuthorID)
	require.Error(t, err)
	assert.True(t, classifieds.IsForbidden(err))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteUserRefusesSelf(t *testing.T) {
	mock, repo := newMockRepository(t)
	manager := NewUserManager(repo, nil)
	self := classifieds.User{ID: adminActor.UserID, Name: "Admin", Email: "admin@example.com", Role: classifieds.RoleAdmin, CreatedAt: testNow}

	mock.ExpectBegin()
	expectUserByID(mock, self)
	mock.ExpectRollback()

	err := manager.DeleteUser(context.Background(), adminActor, adminActor.UserID)
	require.Error(t, err)
	assert.True(t, classifieds.IsValidation(err))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteUserNotFound(t *testing.T) {
	mock, repo := newMockRepository(t)
	manager := NewUserManager(repo, nil)

	mock.ExpectBegin()
	expectUserByID(mock)
	mock.ExpectRollback()

	err := manager.DeleteUser(context.Background(), adminActor, testAuthorID)
	require.Error(t, err)
	assert.Equal(t, classifieds.ErrCodeUserNotFound, classifieds.ErrorCodeOf(err))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteUserWithListingsConflicts(t *testing.T) {
	mock, repo := newMockRepository(t)
	manager := NewUserManager(repo, nil)

	mock.ExpectBegin()
	expectUserByID(mock, testUser())
	mock.ExpectExec(`^DELETE FROM "users" WHERE id = \$1$`).
		WithArgs(testAuthorID).
		WillReturnError(&pgconn.PgError{Code: pgForeignKeyViolation, ConstraintName: "listings_author_id_fkey"})
	mock.ExpectRollback()

	err := manager.DeleteUser(context.Background(), adminActor, testAuthorID)
	require.Error(t, err)
	assert.True(t, classifieds.IsConflict(err))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteUser(t *testing.T) {
	mock, repo := newMockRepository(t)
	manager := NewUserManager(repo, nil)

	mock.ExpectBegin()
	expectUserByID(mock, testUser())
	mock.ExpectExec(`^DELETE FROM "users" WHERE id = \$1$`).
		WithArgs(testAuthorID).
		WillReturnResult(pgxmock.NewResult("DELETE", 1))
	mock.ExpectCommit()
	mock.ExpectRollback()

	require.NoError(t, manager.DeleteUser(context.Background(), adminActor, testAuthorID))
	require.NoError(t, mock.ExpectationsWereMet())
}

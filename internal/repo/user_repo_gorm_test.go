package repo

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"lms-user-service/internal/domain"
)

var userColumns = []string{
	"user_id", "full_name", "phone_number", "email", "course_name",
	"status", "created_at", "updated_at", "version",
}

func newMockRepo(t *testing.T) (*UserRepo, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		Logger:                 logger.Default.LogMode(logger.Silent),
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)
	return NewUserRepo(db), mock
}

func janeRow(rows *sqlmock.Rows, id uint64, version int64) *sqlmock.Rows {
	now := time.Now()
	return rows.AddRow(id, "Jane Doe", "+12345678901", "jane@example.com", "Go 101", "ACTIVE", now, now, version)
}

func TestUserRepo_FindByID(t *testing.T) {
	r, mock := newMockRepo(t)

	mock.ExpectQuery(`SELECT \* FROM "users" WHERE user_id = \$1`).
		WillReturnRows(janeRow(sqlmock.NewRows(userColumns), 7, 2))

	u, err := r.FindByID(context.Background(), 7)
	require.NoError(t, err)
	require.NotNil(t, u)
	assert.Equal(t, uint64(7), u.ID)
	assert.Equal(t, "jane@example.com", u.Email)
	assert.Equal(t, domain.StatusActive, u.Status)
	assert.Equal(t, int64(2), u.Version)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepo_FindByID_NotFound(t *testing.T) {
	r, mock := newMockRepo(t)

	mock.ExpectQuery(`SELECT \* FROM "users" WHERE user_id = \$1`).
		WillReturnRows(sqlmock.NewRows(userColumns))

	u, err := r.FindByID(context.Background(), 7)
	require.NoError(t, err)
	assert.Nil(t, u)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepo_ExistsByEmail(t *testing.T) {
	r, mock := newMockRepo(t)

	mock.ExpectQuery(`SELECT count\(\*\) FROM "users" WHERE email = \$1`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	ok, err := r.ExistsByEmail(context.Background(), "jane@example.com")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepo_FindAll_Page(t *testing.T) {
	r, mock := newMockRepo(t)

	mock.ExpectQuery(`SELECT count\(\*\) FROM "users"`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(5))
	rows := sqlmock.NewRows(userColumns)
	janeRow(rows, 5, 0)
	janeRow(rows, 4, 0)
	mock.ExpectQuery(`SELECT \* FROM "users" ORDER BY "created_at" DESC,\s*"user_id" DESC LIMIT`).
		WillReturnRows(rows)

	p, err := r.FindAll(context.Background(), domain.NewPageRequest(0, 2, "createdAt", "desc"))
	require.NoError(t, err)
	assert.Len(t, p.Content, 2)
	assert.Equal(t, int64(5), p.TotalElements)
	assert.Equal(t, 3, p.TotalPages)
	assert.True(t, p.First)
	assert.False(t, p.Last)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepo_FindAll_InvalidSort(t *testing.T) {
	r, mock := newMockRepo(t)
	_, err := r.FindAll(context.Background(), domain.PageRequest{Size: 10, SortBy: "password"})
	assert.ErrorIs(t, err, domain.ErrValidation)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepo_FindByFullNameContaining_EscapesWildcards(t *testing.T) {
	r, mock := newMockRepo(t)

	mock.ExpectQuery(`SELECT \* FROM "users" WHERE LOWER\(full_name\) LIKE \$1 ESCAPE '!' ORDER BY user_id ASC`).
		WithArgs("%50!%!_off%").
		WillReturnRows(sqlmock.NewRows(userColumns))

	us, err := r.FindByFullNameContaining(context.Background(), "50%_OFF")
	require.NoError(t, err)
	assert.Empty(t, us)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepo_Save_Insert(t *testing.T) {
	r, mock := newMockRepo(t)

	mock.ExpectQuery(`INSERT INTO "users"`).
		WillReturnRows(sqlmock.NewRows([]string{"user_id"}).AddRow(11))

	u := &domain.User{FullName: "Jane Doe", PhoneNumber: "+12345678901", Email: "jane@example.com", CourseName: "Go 101", Status: domain.StatusActive, Version: 3}
	require.NoError(t, r.Save(context.Background(), u))
	assert.Equal(t, uint64(11), u.ID)
	assert.Zero(t, u.Version)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepo_Save_InsertDuplicatePhone(t *testing.T) {
	r, mock := newMockRepo(t)

	mock.ExpectQuery(`INSERT INTO "users"`).
		WillReturnError(errors.New(`ERROR: duplicate key value violates unique constraint "uk_users_phone_number" (SQLSTATE 23505)`))

	u := &domain.User{FullName: "Jane Doe", PhoneNumber: "+12345678901", Email: "jane@example.com", CourseName: "Go 101"}
	err := r.Save(context.Background(), u)
	var uv *domain.UniqueViolation
	require.ErrorAs(t, err, &uv)
	assert.Equal(t, "phone_number", uv.Field)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepo_Save_InsertDuplicateEmailMySQLText(t *testing.T) {
	r, mock := newMockRepo(t)

	mock.ExpectQuery(`INSERT INTO "users"`).
		WillReturnError(errors.New(`Error 1062 (23000): Duplicate entry 'phone.fan@x.com' for key 'users.uk_users_email'`))

	u := &domain.User{FullName: "Phone Fan", PhoneNumber: "+12345678901", Email: "phone.fan@x.com", CourseName: "Go 101"}
	err := r.Save(context.Background(), u)
	var uv *domain.UniqueViolation
	require.ErrorAs(t, err, &uv)
	assert.Equal(t, "email", uv.Field)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDupField(t *testing.T) {
	cases := map[string]string{
		`error 1062 (23000): duplicate entry 'phone.fan@x.com' for key 'users.uk_users_email'`:          "email",
		`error 1062 (23000): duplicate entry '+12345678901' for key 'users.uk_users_phone_number'`:      "phone_number",
		`error 1062 (23000): duplicate entry 'uk_users_email@x.com' for key 'users.uk_users_phone_number'`: "phone_number",
		`error: duplicate key value violates unique constraint "uk_users_email" (sqlstate 23505)`:      "email",
		`unique constraint failed: users.email`:                                                         "email",
		`duplicate key: key (phone_number)=(+1) already exists`:                                         "phone_number",
	}
	for msg, want := range cases {
		assert.Equal(t, want, dupField(msg), msg)
	}
}

func TestUserRepo_Save_UpdateBumpsVersion(t *testing.T) {
	r, mock := newMockRepo(t)

	mock.ExpectExec(`UPDATE "users" SET .*"version"=version \+ 1.* WHERE user_id = \$\d+ AND version = \$\d+`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	u := &domain.User{ID: 7, FullName: "Jane Doe", PhoneNumber: "+12345678901", Email: "jane@example.com", CourseName: "Go 101", Status: domain.StatusSuspended, Version: 2}
	require.NoError(t, r.Save(context.Background(), u))
	assert.Equal(t, int64(3), u.Version)
	assert.False(t, u.UpdatedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepo_Save_StaleVersion(t *testing.T) {
	r, mock := newMockRepo(t)

	mock.ExpectExec(`UPDATE "users" SET`).WillReturnResult(sqlmock.NewResult(0, 0))

	u := &domain.User{ID: 7, FullName: "Jane Doe", PhoneNumber: "+12345678901", Email: "jane@example.com", CourseName: "Go 101", Status: domain.StatusActive, Version: 1}
	err := r.Save(context.Background(), u)
	assert.ErrorIs(t, err, domain.ErrStaleVersion)
	assert.Equal(t, int64(1), u.Version)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepo_Transaction(t *testing.T) {
	r, mock := newMockRepo(t)
	ctx := context.Background()

	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM "users" WHERE user_id = \$1`).WithArgs(7).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := r.Transaction(ctx, func(tx domain.UserRepository) error { return tx.DeleteByID(ctx, 7) })
	require.NoError(t, err)

	boom := errors.New("boom")
	mock.ExpectBegin()
	mock.ExpectRollback()
	err = r.Transaction(ctx, func(domain.UserRepository) error { return boom })
	assert.ErrorIs(t, err, boom)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEscapeLike(t *testing.T) {
	assert.Equal(t, "50!%!_off!!", escapeLike("50%_off!"))
}

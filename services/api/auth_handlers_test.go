package main

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/visioncare/optometry-backend/shared/utils"
)

func gormMock(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	db, err := gorm.Open(postgres.New(postgres.Config{
		Conn:                 sqlDB,
		PreferSimpleProtocol: true,
	}), &gorm.Config{SkipDefaultTransaction: true, TranslateError: true})
	require.NoError(t, err)

	return db, mock
}

func decodeError(t *testing.T, body []byte) utils.ErrorBody {
	t.Helper()
	var envelope utils.ErrorBody
	require.NoError(t, json.Unmarshal(body, &envelope))
	return envelope
}

func TestRegisterDuplicateEmailPrecheck(t *testing.T) {
	db, mock := gormMock(t)

	mock.ExpectQuery(`SELECT \* FROM "users" WHERE email = \$1`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "email", "role", "is_active"}).
			AddRow("6a1f0f3e-51f4-4f6e-9a43-1c1f6f4f2a10", "taken@example.com", "admin", true))

	c, w := jsonContext(t, `{"name":"A","email":"taken@example.com","password":"password123","role":"admin"}`)
	handleRegister(db, utils.NewTokenService("a", "r"))(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Email already registered", decodeError(t, w.Body.Bytes()).Message)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRegisterDuplicateEmailRace(t *testing.T) {
	db, mock := gormMock(t)

	// The pre-check sees nothing; a concurrent insert then trips the unique
	// index. The violation must surface as a conflict, not a 500.
	mock.ExpectQuery(`SELECT \* FROM "users" WHERE email = \$1`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectQuery(`INSERT INTO "users"`).
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "idx_users_email"})

	c, w := jsonContext(t, `{"name":"A","email":"raced@example.com","password":"password123","role":"admin"}`)
	handleRegister(db, utils.NewTokenService("a", "r"))(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Email already registered", decodeError(t, w.Body.Bytes()).Message)
	assert.NoError(t, mock.ExpectationsWereMet())
}

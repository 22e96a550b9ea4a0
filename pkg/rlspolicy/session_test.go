package rlspolicy

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deskhive/deskhive/pkg/authz"
)

func TestSessionClaims_Apply(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	tenantID := int64(7)
	claims := SessionClaims{SubjectID: 42, TenantID: &tenantID, Role: authz.RoleCoworkUser}

	mock.ExpectBegin()
	mock.ExpectExec("set_config").
		WithArgs("42", "7", "COWORK_USER").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	tx, err := db.Begin()
	require.NoError(t, err)
	require.NoError(t, claims.Apply(context.Background(), tx))
	require.NoError(t, tx.Commit())

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSessionClaims_ApplyNilTenant(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	claims := SessionClaims{SubjectID: 1, Role: authz.RoleSuperAdmin}

	mock.ExpectBegin()
	mock.ExpectExec("set_config").
		WithArgs("1", "", "SUPER_ADMIN").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	tx, err := db.Begin()
	require.NoError(t, err)
	require.NoError(t, claims.Apply(context.Background(), tx))
	require.NoError(t, tx.Commit())

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestClaimsFor(t *testing.T) {
	tenantID := int64(3)
	subject := authz.Subject{ID: 9, TenantID: &tenantID, Role: authz.RoleClientAdmin}

	claims := ClaimsFor(subject)
	assert.Equal(t, int64(9), claims.SubjectID)
	assert.Equal(t, &tenantID, claims.TenantID)
	assert.Equal(t, authz.RoleClientAdmin, claims.Role)
}

func TestWithSessionClaims_RollsBackOnError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec("set_config").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectRollback()

	claims := SessionClaims{SubjectID: 1, Role: authz.RoleEndUser}
	callErr := errors.New("query failed")

	err = WithSessionClaims(context.Background(), db, claims, func(tx *sql.Tx) error {
		return callErr
	})
	assert.ErrorIs(t, err, callErr)
	assert.NoError(t, mock.ExpectationsWereMet())
}

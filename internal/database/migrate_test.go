package database

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrate(t *testing.T) {
	ctx := context.Background()

	t.Run("Applies pending migration", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectExec("CREATE TABLE IF NOT EXISTS schema_migrations").
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectQuery("SELECT EXISTS").
			WithArgs("001_credit_ledger.sql").
			WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
		mock.ExpectBegin()
		mock.ExpectExec("CREATE TABLE IF NOT EXISTS credit_accounts").
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectExec("INSERT INTO schema_migrations").
			WithArgs("001_credit_ledger.sql").
			WillReturnResult(sqlmock.NewResult(1, 1))
		mock.ExpectCommit()

		assert.NoError(t, Migrate(ctx, db))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Skips applied migration", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectExec("CREATE TABLE IF NOT EXISTS schema_migrations").
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectQuery("SELECT EXISTS").
			WithArgs("001_credit_ledger.sql").
			WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

		assert.NoError(t, Migrate(ctx, db))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Rolls back failed migration", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectExec("CREATE TABLE IF NOT EXISTS schema_migrations").
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectQuery("SELECT EXISTS").
			WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
		mock.ExpectBegin()
		mock.ExpectExec("CREATE TABLE IF NOT EXISTS credit_accounts").
			WillReturnError(errors.New("syntax error"))
		mock.ExpectRollback()

		err = Migrate(ctx, db)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "001_credit_ledger.sql")
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Requires database", func(t *testing.T) {
		assert.Error(t, Migrate(ctx, nil))
	})
}

func TestDBConfigDSN(t *testing.T) {
	cfg := &DBConfig{Host: "db", Port: "5432", User: "ledger", Password: "secret", Name: "credits", SSLMode: "disable"}
	assert.Equal(t, "host=db port=5432 user=ledger password=secret dbname=credits sslmode=disable", cfg.DSN())
}

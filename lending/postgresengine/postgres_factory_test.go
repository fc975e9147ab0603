package postgresengine_test

import (
	"context"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/lib/pq" // postgres driver
	"github.com/stretchr/testify/assert"

	"github.com/AntonStoeckl/library-lending-go/lending"
	"github.com/AntonStoeckl/library-lending-go/lending/postgresengine"
	"github.com/AntonStoeckl/library-lending-go/test/config"
)

func Test_FactoryFunctions_ShouldFail_WithNilDatabaseConnection(t *testing.T) {
	testCases := []struct {
		name        string
		factoryFunc func() (*postgresengine.Store, error)
	}{
		{
			name: "NewStoreFromPGXPool with nil",
			factoryFunc: func() (*postgresengine.Store, error) {
				return postgresengine.NewStoreFromPGXPool(nil)
			},
		},
		{
			name: "NewStoreFromSQLDB with nil",
			factoryFunc: func() (*postgresengine.Store, error) {
				return postgresengine.NewStoreFromSQLDB(nil)
			},
		},
		{
			name: "NewStoreFromSQLX with nil",
			factoryFunc: func() (*postgresengine.Store, error) {
				return postgresengine.NewStoreFromSQLX(nil)
			},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := tc.factoryFunc()

			assert.ErrorIs(t, err, lending.ErrNilDatabaseConnection)
		})
	}
}

func Test_FactoryFunctions_ShouldFail_WithEmptyTableName(t *testing.T) {
	testCases := []struct {
		name        string
		factoryFunc func(t *testing.T) (*postgresengine.Store, error)
	}{
		{
			name: "NewStoreFromPGXPool with empty books table name",
			factoryFunc: func(t *testing.T) (*postgresengine.Store, error) {
				connPool, err := pgxpool.NewWithConfig(context.Background(), config.PostgresTestConfig())
				assert.NoError(t, err, "error creating DB pool in test setup")
				defer connPool.Close()

				return postgresengine.NewStoreFromPGXPool(connPool, postgresengine.WithBooksTableName(""))
			},
		},
		{
			name: "NewStoreFromSQLDB with empty transactions table name",
			factoryFunc: func(_ *testing.T) (*postgresengine.Store, error) {
				db := config.PostgresSQLDBTestConfig()
				defer func() { _ = db.Close() }()

				return postgresengine.NewStoreFromSQLDB(db, postgresengine.WithTransactionsTableName(""))
			},
		},
		{
			name: "NewStoreFromSQLX with empty books table name",
			factoryFunc: func(_ *testing.T) (*postgresengine.Store, error) {
				db := config.PostgresSQLXTestConfig()
				defer func() { _ = db.Close() }()

				return postgresengine.NewStoreFromSQLX(db, postgresengine.WithBooksTableName(""))
			},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := tc.factoryFunc(t)

			assert.ErrorIs(t, err, lending.ErrEmptyTableNameSupplied)
		})
	}
}

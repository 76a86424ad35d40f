package store

import (
	"context"
	"database/sql/driver"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/restql/internal/ir"
	"github.com/roach88/restql/internal/queryir"
)

func newMock(t *testing.T) (Preparer, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		db.Close()
	})
	return db, mock
}

func accountColumns() []*sqlmock.Column {
	return []*sqlmock.Column{
		sqlmock.NewColumn("id").OfType("UUID", ""),
		sqlmock.NewColumn("username").OfType("VARCHAR", ""),
		sqlmock.NewColumn("age").OfType("INT8", int64(0)).Nullable(true),
		sqlmock.NewColumn("created_on").OfType("TIMESTAMP", time.Time{}),
	}
}

func TestGetRecord_BindsParsedID(t *testing.T) {
	p, mock := newMock(t)
	const id = "89592c86-f85d-4527-bdb9-4c3f5dd63f2d"
	created := time.Date(2020, 1, 1, 12, 0, 0, 0, time.UTC)

	mock.ExpectPrepare("SELECT * FROM accounts WHERE id = $1").
		ExpectQuery().
		WithArgs(id).
		WillReturnRows(sqlmock.NewRowsWithColumnDefinition(accountColumns()...).
			AddRow(id, "ada", nil, created))

	row, err := GetRecord(context.Background(), p, "accounts", id)
	require.NoError(t, err)

	require.Len(t, row, 4)
	assert.Equal(t, ir.ParseString(id), row["id"])
	assert.Equal(t, ir.String("ada"), row["username"])
	assert.Contains(t, row, "age")
	assert.Nil(t, row["age"])
	assert.True(t, ir.Equal(ir.NewDateTime(created), row["created_on"]))
}

func TestGetRecord_IntegerID(t *testing.T) {
	p, mock := newMock(t)

	// Non-UUID, non-datetime ids bind as text; the database casts.
	mock.ExpectPrepare("SELECT * FROM accounts WHERE id = $1").
		ExpectQuery().
		WithArgs("42").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(42)))

	row, err := GetRecord(context.Background(), p, "accounts", "42")
	require.NoError(t, err)
	assert.Equal(t, ir.OptionalJSONMap{"id": ir.Int(42)}, row)
}

func TestGetRecord_NoRow(t *testing.T) {
	p, mock := newMock(t)

	mock.ExpectPrepare("SELECT * FROM accounts WHERE id = $1").
		ExpectQuery().
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	row, err := GetRecord(context.Background(), p, "accounts", "missing")
	require.NoError(t, err)
	assert.Nil(t, row)
}

func TestGetRecord_MultipleRows(t *testing.T) {
	p, mock := newMock(t)

	mock.ExpectPrepare("SELECT * FROM accounts WHERE id = $1").
		ExpectQuery().
		WithArgs("dup").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("dup").AddRow("dup"))

	_, err := GetRecord(context.Background(), p, "accounts", "dup")
	require.Error(t, err)
	assert.True(t, ir.IsCode(err, ir.ErrCodeDatabase))
}

func TestListRecords(t *testing.T) {
	p, mock := newMock(t)

	desc, err := queryir.Parse("select=id,name&order=id.desc&limit=2")
	require.NoError(t, err)

	mock.ExpectPrepare("SELECT id, name FROM testing ORDER BY id DESC LIMIT 2").
		ExpectQuery().
		WithArgs().
		WillReturnRows(sqlmock.NewRowsWithColumnDefinition(
			sqlmock.NewColumn("id").OfType("INT4", int64(0)),
			sqlmock.NewColumn("name").OfType("TEXT", ""),
		).AddRow(int64(2), "b").AddRow(int64(1), "a"))

	rows, err := ListRecords(context.Background(), p, "testing", desc)
	require.NoError(t, err)

	assert.Equal(t, []ir.OptionalJSONMap{
		{"id": ir.Int(2), "name": ir.String("b")},
		{"id": ir.Int(1), "name": ir.String("a")},
	}, rows)
}

func TestListRecords_EmptyIsNotNil(t *testing.T) {
	p, mock := newMock(t)

	mock.ExpectPrepare("SELECT * FROM testing").
		ExpectQuery().
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	rows, err := ListRecords(context.Background(), p, "testing", queryir.Descriptor{})
	require.NoError(t, err)
	assert.NotNil(t, rows)
	assert.Empty(t, rows)
}

func TestListRecords_CompileErrorSkipsDatabase(t *testing.T) {
	p, _ := newMock(t)

	_, err := ListRecords(context.Background(), p, "", queryir.Descriptor{})
	require.Error(t, err)
	assert.True(t, ir.IsCode(err, ir.ErrCodeSQLCompile))
}

func TestInsertRecord_SortedBinding(t *testing.T) {
	p, mock := newMock(t)

	data := ir.JSONMap{
		"username": ir.String("ada"),
		"email":    ir.String("ada@example.com"),
		"age":      ir.Int(36),
	}

	mock.ExpectPrepare("INSERT INTO accounts (age, email, username) VALUES ($1, $2, $3) RETURNING *").
		ExpectQuery().
		WithArgs(int64(36), "ada@example.com", "ada").
		WillReturnRows(sqlmock.NewRowsWithColumnDefinition(
			sqlmock.NewColumn("id").OfType("INT8", int64(0)),
			sqlmock.NewColumn("age").OfType("INT8", int64(0)),
			sqlmock.NewColumn("email").OfType("TEXT", ""),
			sqlmock.NewColumn("username").OfType("TEXT", ""),
		).AddRow(int64(7), int64(36), "ada@example.com", "ada"))

	row, err := InsertRecord(context.Background(), p, "accounts", data)
	require.NoError(t, err)

	assert.Equal(t, ir.OptionalJSONMap{
		"id":       ir.Int(7),
		"age":      ir.Int(36),
		"email":    ir.String("ada@example.com"),
		"username": ir.String("ada"),
	}, row)
}

func TestInsertRecord_NoReturnedRow(t *testing.T) {
	p, mock := newMock(t)

	mock.ExpectPrepare("INSERT INTO accounts (username) VALUES ($1) RETURNING *").
		ExpectQuery().
		WithArgs("ada").
		WillReturnRows(sqlmock.NewRows([]string{"id", "username"}))

	_, err := InsertRecord(context.Background(), p, "accounts", ir.JSONMap{"username": ir.String("ada")})
	require.Error(t, err)
	assert.True(t, ir.IsCode(err, ir.ErrCodeEmptyResult))
}

func TestRecords_DatabaseErrors(t *testing.T) {
	boom := errors.New("connection reset")

	t.Run("prepare", func(t *testing.T) {
		p, mock := newMock(t)
		mock.ExpectPrepare("SELECT * FROM testing").WillReturnError(boom)

		_, err := ListRecords(context.Background(), p, "testing", queryir.Descriptor{})
		require.Error(t, err)
		assert.True(t, ir.IsCode(err, ir.ErrCodeDatabase))
		assert.ErrorIs(t, err, boom)
	})

	t.Run("query", func(t *testing.T) {
		p, mock := newMock(t)
		mock.ExpectPrepare("SELECT * FROM testing").ExpectQuery().WillReturnError(boom)

		_, err := ListRecords(context.Background(), p, "testing", queryir.Descriptor{})
		require.Error(t, err)
		assert.True(t, ir.IsCode(err, ir.ErrCodeDatabase))
		assert.ErrorIs(t, err, boom)
	})

	t.Run("row", func(t *testing.T) {
		p, mock := newMock(t)
		mock.ExpectPrepare("SELECT * FROM testing").
			ExpectQuery().
			WillReturnRows(sqlmock.NewRows([]string{"id"}).
				AddRow(int64(1)).
				AddRow(int64(2)).
				RowError(1, boom))

		_, err := ListRecords(context.Background(), p, "testing", queryir.Descriptor{})
		require.Error(t, err)
		assert.True(t, ir.IsCode(err, ir.ErrCodeDatabase))
	})
}

func TestRecords_ScanFailure(t *testing.T) {
	p, mock := newMock(t)

	mock.ExpectPrepare("SELECT * FROM testing").
		ExpectQuery().
		WillReturnRows(sqlmock.NewRowsWithColumnDefinition(
			sqlmock.NewColumn("n").OfType("INT8", int64(0)),
		).AddRow(driver.Value("not a number")))

	_, err := ListRecords(context.Background(), p, "testing", queryir.Descriptor{})
	require.Error(t, err)
	assert.True(t, ir.IsCode(err, ir.ErrCodeDatabase), "scan failures surface as database errors")
}

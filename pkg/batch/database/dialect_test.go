package database_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Vignesh4110/finance-modernization/pkg/batch/database"
)

func TestDialect_Rebind(t *testing.T) {
	q := "INSERT INTO t (a, b, note) VALUES (?, ?, 'why?')"

	assert.Equal(t, "INSERT INTO t (a, b, note) VALUES ($1, $2, 'why?')", database.DialectPostgres.Rebind(q))
	assert.Equal(t, "INSERT INTO t (a, b, note) VALUES ($1, $2, 'why?')", database.DialectRedshift.Rebind(q))
	assert.Equal(t, q, database.DialectSQLite.Rebind(q))
	assert.Equal(t, q, database.DialectMySQL.Rebind(q))
	assert.Equal(t, q, database.DialectSnowflake.Rebind(q))
}

func TestDialect_QuoteIdent(t *testing.T) {
	assert.Equal(t, "`raw_cusmas`", database.DialectMySQL.QuoteIdent("raw_cusmas"))
	assert.Equal(t, `"raw_cusmas"`, database.DialectPostgres.QuoteIdent("raw_cusmas"))
	assert.Equal(t, `"a""b"`, database.DialectSQLite.QuoteIdent(`a"b`))
}

func TestParseDialect(t *testing.T) {
	d, ok := database.ParseDialect(" Postgres ")
	assert.True(t, ok)
	assert.Equal(t, database.DialectPostgres, d)

	_, ok = database.ParseDialect("oracle")
	assert.False(t, ok)
}

func TestPlaceholders(t *testing.T) {
	assert.Equal(t, "?, ?, ?", database.Placeholders(3))
	assert.Equal(t, "", database.Placeholders(0))
}

package database

import (
	"strconv"
	"strings"
)

// Dialect はデータベースごとの SQL の差異を吸収します。
// リポジトリとライタは "?" プレースホルダで SQL を書き、Rebind で変換します。
type Dialect string

const (
	DialectSQLite    Dialect = "sqlite"
	DialectPostgres  Dialect = "postgres"
	DialectRedshift  Dialect = "redshift"
	DialectMySQL     Dialect = "mysql"
	DialectSnowflake Dialect = "snowflake"
)

// ParseDialect は設定値 database.type から Dialect を返します。
func ParseDialect(dbType string) (Dialect, bool) {
	switch d := Dialect(strings.ToLower(strings.TrimSpace(dbType))); d {
	case DialectSQLite, DialectPostgres, DialectRedshift, DialectMySQL, DialectSnowflake:
		return d, true
	default:
		return "", false
	}
}

func (d Dialect) numberedPlaceholders() bool {
	return d == DialectPostgres || d == DialectRedshift
}

// Rebind は "?" プレースホルダを方言に合わせて書き換えます。
// PostgreSQL 系では $1, $2 ... に変換します。文字列リテラル内の "?" は変換しません。
func (d Dialect) Rebind(query string) string {
	if !d.numberedPlaceholders() {
		return query
	}
	var sb strings.Builder
	sb.Grow(len(query) + 16)
	n := 0
	inQuote := false
	for i := 0; i < len(query); i++ {
		c := query[i]
		switch {
		case c == '\'':
			inQuote = !inQuote
			sb.WriteByte(c)
		case c == '?' && !inQuote:
			n++
			sb.WriteByte('$')
			sb.WriteString(strconv.Itoa(n))
		default:
			sb.WriteByte(c)
		}
	}
	return sb.String()
}

// QuoteIdent は識別子をクォートします。
func (d Dialect) QuoteIdent(name string) string {
	if d == DialectMySQL {
		return "`" + strings.ReplaceAll(name, "`", "``") + "`"
	}
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// Placeholders は n 個のプレースホルダをカンマ区切りで返します (Rebind 前の "?" 形式)。
func Placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

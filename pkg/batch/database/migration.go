package database

import (
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	migratedb "github.com/golang-migrate/migrate/v4/database"
	migratemysql "github.com/golang-migrate/migrate/v4/database/mysql"
	migratepostgres "github.com/golang-migrate/migrate/v4/database/postgres"
	migrateredshift "github.com/golang-migrate/migrate/v4/database/redshift"
	migratesnowflake "github.com/golang-migrate/migrate/v4/database/snowflake"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	"github.com/Vignesh4110/finance-modernization/pkg/batch/util/exception"
	"github.com/Vignesh4110/finance-modernization/pkg/batch/util/logger"
)

// MigrationsTable はフレームワークのマイグレーション履歴テーブルです。
const MigrationsTable = "batch_schema_migrations"

//go:embed migrations/*.sql
var frameworkMigrations embed.FS

// RunMigrations はジョブリポジトリとパースエラー表のマイグレーションを適用します。
// 既に最新の場合は何もしません。conn はマイグレーション専用の接続を渡してください。終了時に閉じられます。
func RunMigrations(conn DBConnection) error {
	logger.Infof("データベースマイグレーションを開始します。DBタイプ: %s", conn.Dialect())

	driver, err := migrationDriver(conn)
	if err != nil {
		return exception.NewBatchError("migration", "マイグレーションドライバの作成に失敗しました", err, false, false)
	}
	src, err := iofs.New(frameworkMigrations, "migrations")
	if err != nil {
		return exception.NewBatchError("migration", "マイグレーションソースの読み込みに失敗しました", err, false, false)
	}
	m, err := migrate.NewWithInstance("iofs", src, string(conn.Dialect()), driver)
	if err != nil {
		return exception.NewBatchError("migration", "マイグレーションインスタンスの作成に失敗しました", err, false, false)
	}
	defer func() {
		if srcErr, dbErr := m.Close(); srcErr != nil || dbErr != nil {
			logger.Warnf("マイグレーション接続のクローズに失敗しました: source=%v, database=%v", srcErr, dbErr)
		}
	}()

	if err := m.Up(); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			logger.Infof("マイグレーションは不要です。データベースは最新の状態です。")
			return nil
		}
		return exception.NewBatchError("migration", "マイグレーションの実行に失敗しました", err, false, false)
	}
	version, _, _ := m.Version()
	logger.Infof("データベースマイグレーションが正常に完了しました。バージョン: %d", version)
	return nil
}

// migrationDriver は conn を使う golang-migrate のドライバを返します。
func migrationDriver(conn DBConnection) (migratedb.Driver, error) {
	db := conn.DB()
	switch conn.Dialect() {
	case DialectSQLite:
		return migratesqlite.WithInstance(db, &migratesqlite.Config{MigrationsTable: MigrationsTable})
	case DialectPostgres:
		return migratepostgres.WithInstance(db, &migratepostgres.Config{MigrationsTable: MigrationsTable})
	case DialectRedshift:
		return migrateredshift.WithInstance(db, &migrateredshift.Config{MigrationsTable: MigrationsTable})
	case DialectMySQL:
		return migratemysql.WithInstance(db, &migratemysql.Config{MigrationsTable: MigrationsTable})
	case DialectSnowflake:
		return migratesnowflake.WithInstance(db, &migratesnowflake.Config{MigrationsTable: MigrationsTable})
	default:
		return nil, fmt.Errorf("サポートされていないデータベースタイプ: %s", conn.Dialect())
	}
}

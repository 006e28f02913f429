package connector

import (
	"database/sql"

	_ "github.com/lib/pq" // Redshift は PostgreSQL プロトコル互換

	"github.com/Vignesh4110/finance-modernization/pkg/batch/config"
)

type redshiftConnector struct{}

// Connect は Redshift への接続を開きます。
func (c *redshiftConnector) Connect(cfg config.DatabaseConfig) (*sql.DB, error) {
	return openWithPool("postgres", "Redshift", cfg)
}

func init() {
	RegisterConnector("redshift", &redshiftConnector{})
}

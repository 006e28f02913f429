package connector

import (
	"database/sql"

	_ "github.com/lib/pq"

	"github.com/Vignesh4110/finance-modernization/pkg/batch/config"
)

type postgresConnector struct{}

// Connect は PostgreSQL への接続を開きます。
func (c *postgresConnector) Connect(cfg config.DatabaseConfig) (*sql.DB, error) {
	return openWithPool("postgres", "PostgreSQL", cfg)
}

func init() {
	RegisterConnector("postgres", &postgresConnector{})
}

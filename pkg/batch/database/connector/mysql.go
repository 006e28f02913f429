package connector

import (
	"database/sql"

	_ "github.com/go-sql-driver/mysql"

	"github.com/Vignesh4110/finance-modernization/pkg/batch/config"
)

type mysqlConnector struct{}

// Connect は MySQL への接続を開きます。DSN には parseTime=true が付与されます。
func (c *mysqlConnector) Connect(cfg config.DatabaseConfig) (*sql.DB, error) {
	return openWithPool("mysql", "MySQL", cfg)
}

func init() {
	RegisterConnector("mysql", &mysqlConnector{})
}

package connector

import (
	"database/sql"

	_ "github.com/snowflakedb/gosnowflake"

	"github.com/Vignesh4110/finance-modernization/pkg/batch/config"
)

type snowflakeConnector struct{}

// Connect は Snowflake への接続を開きます。account / warehouse / schema は database セクションから取ります。
func (c *snowflakeConnector) Connect(cfg config.DatabaseConfig) (*sql.DB, error) {
	return openWithPool("snowflake", "Snowflake", cfg)
}

func init() {
	RegisterConnector("snowflake", &snowflakeConnector{})
}

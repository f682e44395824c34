package pg

import (
	"database/sql"
	"fmt"
)

type Config struct {
	User     string `env:"USER"`
	Host     string `env:"HOST"`
	Port     string `env:"PORT"`
	Password string `env:"PASSWORD"`
	Database string `env:"DBNAME"`
}

func (c Config) dsn() string {
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=disable", c.Host, c.User, c.Password, c.Database, c.Port)
}

// newSqlConnection opens a plain database/sql handle for goose; the
// gorm connections in pg.go do not share it.
func newSqlConnection(config Config) (*sql.DB, error) {
	return sql.Open("postgres", config.dsn())
}

package utils

import (
	"database/sql"
	"os"

	_ "github.com/lib/pq"
)

func BuildPostgresDSNFromEnv() string {
	if dsn := os.Getenv("PG_DSN"); dsn != "" {
		return dsn
	}
	host := EnvString("PG_HOST", "localhost")
	port := EnvString("PG_PORT", "5432")
	user := EnvString("PG_USER", "postgres")
	pass := os.Getenv("PG_PASSWORD")
	db := EnvString("PG_DB", "popmap")
	ssl := EnvString("PG_SSLMODE", "disable")
	dsn := "postgres://" + user
	if pass != "" {
		dsn += ":" + pass
	}
	dsn += "@" + host + ":" + port + "/" + db + "?sslmode=" + ssl
	return dsn
}

// OpenPostgresFromEnv：连接池上限由 PG_MAX_OPEN_CONNS / PG_MAX_IDLE_CONNS 覆盖
// 约束：sql.Open 不建立连接，调用方自行 Ping
func OpenPostgresFromEnv() (*sql.DB, error) {
	db, err := sql.Open("postgres", BuildPostgresDSNFromEnv())
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(EnvInt("PG_MAX_OPEN_CONNS", 20))
	db.SetMaxIdleConns(EnvInt("PG_MAX_IDLE_CONNS", 10))
	return db, nil
}

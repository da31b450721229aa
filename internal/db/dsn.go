package db

import (
	"strconv"
	"time"

	gomysql "github.com/go-sql-driver/mysql"
)

// withLockWait дописывает innodb_lock_wait_timeout в системные переменные DSN.
// Некорректный DSN возвращается как есть: ошибку покажет gorm.Open.
func withLockWait(dsn string, d time.Duration) string {
	if d <= 0 {
		return dsn
	}
	cfg, err := gomysql.ParseDSN(dsn)
	if err != nil {
		return dsn
	}
	secs := int64(d / time.Second)
	if secs < 1 {
		secs = 1
	}
	if cfg.Params == nil {
		cfg.Params = map[string]string{}
	}
	if _, ok := cfg.Params["innodb_lock_wait_timeout"]; !ok {
		cfg.Params["innodb_lock_wait_timeout"] = strconv.FormatInt(secs, 10)
	}
	return cfg.FormatDSN()
}

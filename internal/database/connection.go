package database

import (
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql" // 드라이버 임포트
	"github.com/jmoiron/sqlx"

	"alimflow/internal/config"
)

// DSN은 MySQL 접속 문자열을 만듭니다.
// (parseTime=true: DATETIME -> time.Time, utf8mb4: 한글/이모지 본문)
func DSN(c config.RepositoryConfig) string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true&charset=utf8mb4&loc=Local",
		c.User, c.Password, c.Endpoint, c.Port, c.Database)
}

// CreateConnection은 sqlx 커넥션 풀을 생성합니다.
func CreateConnection(c config.RepositoryConfig) (*sqlx.DB, error) {
	db, err := sqlx.Connect("mysql", DSN(c))
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(20)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(5 * time.Minute)
	return db, nil
}

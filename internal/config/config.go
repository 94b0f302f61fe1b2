package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
	"github.com/sizzlei/confloader"
)

// Config는 alimflow 서버 설정입니다.
type Config struct {
	Repository RepositoryConfig
	Kakao      KakaoConfig
	Server     ServerConfig
}

// RepositoryConfig는 MySQL 접속 정보입니다.
type RepositoryConfig struct {
	User     string
	Password string
	Endpoint string
	Port     int
	Database string
}

// KakaoConfig는 카카오 메시징 플랫폼 API 접속 정보입니다.
type KakaoConfig struct {
	BaseURL      string
	ClientID     string
	ClientSecret string
}

// ServerConfig는 HTTP 서버 설정입니다.
type ServerConfig struct {
	Port          string
	CookieSecure  bool
	ViewsDir      string
	SyncBatchSize int
}

// section은 confloader(Parameter Store)와 환경 변수를 같은 방식으로 읽기 위한 추상화입니다.
type section func(key string) (interface{}, bool)

// LoadFromParameterStore는 AWS Parameter Store에서 설정을 읽습니다.
func LoadFromParameterStore(region, path string) (*Config, error) {
	conf, err := confloader.AWSParamLoader(region, path)
	if err != nil {
		return nil, fmt.Errorf("parameter store 로드 실패(%s): %w", path, err)
	}

	fromKeyload := func(name string) section {
		m := conf.Keyload(name)
		return func(key string) (interface{}, bool) {
			v, ok := m[key]
			return v, ok
		}
	}
	return build(fromKeyload("repository"), fromKeyload("kakao"), fromKeyload("server"))
}

// LoadFromEnv는 (로컬 개발용) .env 파일과 환경 변수에서 설정을 읽습니다.
func LoadFromEnv(files ...string) (*Config, error) {
	if err := godotenv.Load(files...); err != nil {
		log.Warnf(".env 파일을 읽지 못했습니다. 환경 변수만 사용합니다: %v", err)
	}

	fromEnv := func(prefix string) section {
		return func(key string) (interface{}, bool) {
			return os.LookupEnv(prefix + "_" + key)
		}
	}
	return build(fromEnv("REPOSITORY"), fromEnv("KAKAO"), fromEnv("SERVER"))
}

func build(repo, kakao, server section) (*Config, error) {
	cfg := &Config{
		Repository: RepositoryConfig{
			User:     str(repo, "User", ""),
			Password: str(repo, "Password", ""),
			Endpoint: str(repo, "Endpoint", "127.0.0.1"),
			Port:     num(repo, "Port", 3306),
			Database: str(repo, "Database", "alimflow"),
		},
		Kakao: KakaoConfig{
			BaseURL:      str(kakao, "BaseURL", ""),
			ClientID:     str(kakao, "ClientID", ""),
			ClientSecret: str(kakao, "ClientSecret", ""),
		},
		Server: ServerConfig{
			Port:          str(server, "Port", "3000"),
			CookieSecure:  str(server, "CookieSecure", "false") == "true",
			ViewsDir:      str(server, "ViewsDir", "./web/views"),
			SyncBatchSize: num(server, "SyncBatchSize", 4),
		},
	}

	if cfg.Repository.User == "" {
		return nil, fmt.Errorf("repository.User 설정이 없습니다")
	}
	if cfg.Kakao.BaseURL == "" {
		return nil, fmt.Errorf("kakao.BaseURL 설정이 없습니다")
	}
	return cfg, nil
}

func str(s section, key, fallback string) string {
	v, ok := s(key)
	if !ok || v == nil {
		return fallback
	}
	switch t := v.(type) {
	case string:
		if t == "" {
			return fallback
		}
		return t
	case bool:
		return strconv.FormatBool(t)
	default:
		return fmt.Sprint(t)
	}
}

func num(s section, key string, fallback int) int {
	v, ok := s(key)
	if !ok || v == nil {
		return fallback
	}
	switch t := v.(type) {
	case int:
		return t
	case int64:
		return int(t)
	case float64:
		return int(t)
	case string:
		n, err := strconv.Atoi(t)
		if err != nil {
			log.Warnf("설정 값(%s)이 숫자가 아닙니다: %q", key, t)
			return fallback
		}
		return n
	default:
		return fallback
	}
}

package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// Config는 한 크롤러 인스턴스의 전체 설정입니다. 전역 상태가 아니라
// 값으로 만들어서 오케스트레이터와 수집기에 주입합니다.
type Config struct {
	BoardID         string `yaml:"board_id"`
	PageSize        int    `yaml:"page_size"`
	IntervalMinutes int    `yaml:"interval_minutes"`
	// MaxLookback은 한 사이클에서 살펴볼 최신 글 개수 상한입니다.
	// 0 이하이면 Lookback()이 기본값을 계산합니다.
	MaxLookback int `yaml:"max_lookback"`

	Server ServerConfig `yaml:"server"`
	Source SourceConfig `yaml:"source"`
	Retry  RetryConfig  `yaml:"retry"`
}

type ServerConfig struct {
	Port       int `yaml:"port"`
	HealthPort int `yaml:"health_port"`
}

type SourceConfig struct {
	BaseURL   string `yaml:"base_url"`
	Origin    string `yaml:"origin"`
	Referer   string `yaml:"referer"`
	UserAgent string `yaml:"user_agent"`
	// Cookie는 파일에 두지 않고 EVERYTIME_COOKIE 환경변수로만 받습니다.
	Cookie         string        `yaml:"-"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
}

// RetryConfig가 꺼져 있으면(기본) 전송 실패는 재시도 없이 바로 사이클을
// 중단시킵니다. 켜는 것은 명시적 운영 선택입니다.
type RetryConfig struct {
	Enabled  bool          `yaml:"enabled"`
	Attempts int           `yaml:"attempts"`
	Backoff  time.Duration `yaml:"backoff"`
}

// Load는 YAML 설정 파일을 읽습니다. 파일이 없거나 깨져 있으면 기본값으로
// 동작합니다(원본과 동일하게 기동 실패보다는 기본값을 택함).
func Load(path string) *Config {
	cfg := Default()

	raw, err := os.ReadFile(path)
	if err != nil {
		zap.S().Warnw("설정 파일을 읽지 못해 기본값을 사용합니다", "path", path, "error", err)
	} else if err := yaml.Unmarshal(raw, cfg); err != nil {
		zap.S().Warnw("설정 파일 파싱 실패, 기본값을 사용합니다", "path", path, "error", err)
		cfg = Default()
	}

	cfg.setDefaults()
	cfg.applyEnv()
	return cfg
}

func Default() *Config {
	cfg := &Config{}
	cfg.setDefaults()
	return cfg
}

// Lookback은 한 사이클에서 고려할 최신 글 개수입니다.
func (c *Config) Lookback() int {
	if c.MaxLookback > 0 {
		return c.MaxLookback
	}
	lookback := c.PageSize * 3
	if lookback < 50 {
		lookback = 50
	}
	return lookback
}

func (c *Config) Interval() time.Duration {
	return time.Duration(c.IntervalMinutes) * time.Minute
}

func (c *Config) setDefaults() {
	if c.BoardID == "" {
		c.BoardID = "393752"
	}
	if c.PageSize <= 0 {
		c.PageSize = 5
	}
	if c.IntervalMinutes <= 0 {
		c.IntervalMinutes = 2
	}
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Server.HealthPort == 0 {
		c.Server.HealthPort = 8086
	}
	if c.Source.BaseURL == "" {
		c.Source.BaseURL = "https://api.everytime.kr"
	}
	if c.Source.Origin == "" {
		c.Source.Origin = "https://everytime.kr"
	}
	if c.Source.Referer == "" {
		c.Source.Referer = "https://everytime.kr/"
	}
	if c.Source.UserAgent == "" {
		c.Source.UserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/139.0.0.0 Safari/537.36"
	}
	if c.Source.RequestTimeout <= 0 {
		c.Source.RequestTimeout = 10 * time.Second
	}
	if c.Retry.Attempts <= 0 {
		c.Retry.Attempts = 3
	}
	if c.Retry.Backoff <= 0 {
		c.Retry.Backoff = 2 * time.Second
	}
}

func (c *Config) applyEnv() {
	if v := os.Getenv("EVERYTIME_COOKIE"); v != "" {
		c.Source.Cookie = v
	}
	if v := os.Getenv("BOARD_ID"); v != "" {
		c.BoardID = v
	}
	if v := os.Getenv("PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			zap.S().Warnf("PORT 값이 올바르지 않습니다: %q", v)
		} else {
			c.Server.Port = port
		}
	}
}

func (c *Config) String() string {
	return fmt.Sprintf("board=%s pageSize=%d interval=%dm lookback=%d",
		c.BoardID, c.PageSize, c.IntervalMinutes, c.Lookback())
}

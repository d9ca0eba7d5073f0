package config

import (
	"fmt"
	"net/url"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config はアプリケーション全体の設定を保持する。
// 環境変数から起動時に1回読み込み、イミュータブルとして扱う。
type Config struct {
	// Database
	DatabaseURL string `env:"DATABASE_URL,required,notEmpty"`

	// JWT
	JWTSecret         string `env:"JWT_SECRET,required,notEmpty"`
	JWTExpiresMinutes int    `env:"JWT_EXPIRES_MINUTES" envDefault:"1440"`

	// Team
	InviteCodeLength int `env:"INVITE_CODE_LENGTH" envDefault:"8"`
	TeamDefaultQuota int `env:"TEAM_DEFAULT_QUOTA" envDefault:"5"`

	// WeChat subscribe message
	WeChatAppID            string        `env:"WECHAT_APPID"`
	WeChatSecret           string        `env:"WECHAT_SECRET"`
	WeChatTemplateID       string        `env:"WECHAT_TEMPLATE_ID"`
	WeChatBaseURL          string        `env:"WECHAT_BASE_URL" envDefault:"https://api.weixin.qq.com"`
	WeChatTimeout          time.Duration `env:"WECHAT_TIMEOUT" envDefault:"5s"`
	WeChatMiniprogramState string        `env:"WECHAT_MINIPROGRAM_STATE" envDefault:"formal"`
	WeChatLang             string        `env:"WECHAT_LANG" envDefault:"zh_CN"`
	WeChatPage             string        `env:"WECHAT_PAGE" envDefault:"pages/index/index"`

	// Rate Limit（req/min/user）
	RateLimitGeneral int `env:"RATE_LIMIT_GENERAL" envDefault:"120"`
	RateLimitSend    int `env:"RATE_LIMIT_SEND" envDefault:"10"`

	// Server
	ServerPort  string `env:"SERVER_PORT" envDefault:"8080"`
	MetricsPort string `env:"METRICS_PORT" envDefault:"9090"`

	// CORS
	CORSAllowedOrigin string `env:"CORS_ALLOWED_ORIGIN" envDefault:"http://localhost:3000"` // カンマ区切り、"*"で全許可

	// Logging
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
}

// JWTExpires はトークンの有効期間を返す。
func (c *Config) JWTExpires() time.Duration {
	return time.Duration(c.JWTExpiresMinutes) * time.Minute
}

// WeChatConfigured は購読メッセージ送信に必要な認証情報が揃っているかを返す。
func (c *Config) WeChatConfigured() bool {
	return c.WeChatAppID != "" && c.WeChatSecret != ""
}

// Load は環境変数からConfigを読み込む。
// 必須環境変数が未設定の場合や値が範囲外の場合はエラーを返す。
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.InviteCodeLength < 4 || c.InviteCodeLength > 64 {
		return fmt.Errorf("INVITE_CODE_LENGTH must be between 4 and 64: %d", c.InviteCodeLength)
	}
	if c.TeamDefaultQuota < 1 {
		return fmt.Errorf("TEAM_DEFAULT_QUOTA must be positive: %d", c.TeamDefaultQuota)
	}
	if c.JWTExpiresMinutes < 1 {
		return fmt.Errorf("JWT_EXPIRES_MINUTES must be positive: %d", c.JWTExpiresMinutes)
	}
	if c.RateLimitGeneral < 1 || c.RateLimitSend < 1 {
		return fmt.Errorf("rate limits must be positive: general=%d send=%d", c.RateLimitGeneral, c.RateLimitSend)
	}
	if c.WeChatTimeout <= 0 {
		return fmt.Errorf("WECHAT_TIMEOUT must be positive: %s", c.WeChatTimeout)
	}
	if u, err := url.Parse(c.WeChatBaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("WECHAT_BASE_URL must be an absolute URL: %q", c.WeChatBaseURL)
	}
	return nil
}

// Package config はtechnotesの設定を読み込む。
//
// 設定はYAMLファイルとTECHNOTES_で始まる環境変数から読み込み、
// デフォルト値を補ってから検証する。
// 例: TECHNOTES_API_BASE_URL は api.base_url を上書きする。
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

const (
	// EnvPrefix は環境変数のプレフィックス。
	EnvPrefix = "TECHNOTES"
	// DefaultBaseURL はAPIサーバーのデフォルトURL。
	DefaultBaseURL = "https://technotes-api.onrender.com"
	// fileName は探索する設定ファイルの名前（拡張子なし）。
	fileName = "technotes"
)

// Config はアプリケーション全体の設定。
type Config struct {
	API     APIConfig     `mapstructure:"api" yaml:"api"`
	Server  ServerConfig  `mapstructure:"server" yaml:"server"`
	Storage StorageConfig `mapstructure:"storage" yaml:"storage"`
	Log     LogConfig     `mapstructure:"log" yaml:"log"`
	Auth    AuthConfig    `mapstructure:"auth" yaml:"auth"`
}

// APIConfig はAPIサーバーへの接続設定。
type APIConfig struct {
	// BaseURL はAPIサーバーのベースURL。
	BaseURL string `mapstructure:"base_url" yaml:"base_url" validate:"required,url"`
	// RefreshPath はアクセストークン再発行のパス。
	RefreshPath string `mapstructure:"refresh_path" yaml:"refresh_path" validate:"required,startswith=/"`
	// Timeout は1回のHTTPリクエストのタイムアウト。
	Timeout time.Duration `mapstructure:"timeout" yaml:"timeout" validate:"gt=0"`
}

// ServerConfig はダッシュボードサーバーの設定。
type ServerConfig struct {
	// Addr は待ち受けアドレス。
	Addr string `mapstructure:"addr" yaml:"addr" validate:"required"`
	// AllowedOrigins はCORSで許可するオリジン。
	AllowedOrigins []string `mapstructure:"allowed_origins" yaml:"allowed_origins" validate:"dive,url"`
}

// StorageConfig はローカル設定ストアの設定。
type StorageConfig struct {
	// Path はSQLiteファイルのパス。":memory:" も指定できる。
	Path string `mapstructure:"path" yaml:"path" validate:"required"`
}

// LogConfig はログ出力の設定。
type LogConfig struct {
	// Level はログレベル。
	Level string `mapstructure:"level" yaml:"level" validate:"oneof=debug info warn warning error"`
}

// AuthConfig はCLIが使うログイン情報。
type AuthConfig struct {
	Username string `mapstructure:"username" yaml:"username"`
	Password string `mapstructure:"password" yaml:"password"`
	// Persist はログイン状態を維持してリフレッシュCookieを保存するかどうか。
	Persist  bool   `mapstructure:"persist" yaml:"persist"`
}

// HasCredentials はログイン情報が設定されているかどうかを返す。
func (a AuthConfig) HasCredentials() bool {
	return a.Username != "" && a.Password != ""
}

// setDefaults はviperにデフォルト値を登録する。
// 環境変数だけで設定する場合もUnmarshalの対象になるよう、全キーを登録する。
func setDefaults(v *viper.Viper) {
	v.SetDefault("api.base_url", DefaultBaseURL)
	v.SetDefault("api.refresh_path", "/auth/refresh")
	v.SetDefault("api.timeout", 30*time.Second)
	v.SetDefault("server.addr", ":3000")
	v.SetDefault("server.allowed_origins", []string{"http://localhost:3000"})
	v.SetDefault("storage.path", "technotes.db")
	v.SetDefault("log.level", "info")
	v.SetDefault("auth.username", "")
	v.SetDefault("auth.password", "")
	v.SetDefault("auth.persist", false)
}

// New は設定ファイルと環境変数を読み込むviperインスタンスを生成する。
// configFileが空の場合はカレントディレクトリと ~/.technotes から technotes.yaml/.yml を探す。
func New(configFile string) *viper.Viper {
	v := viper.New()
	setDefaults(v)

	if configFile == "" {
		configFile = findConfigFile()
	}
	if configFile != "" {
		v.SetConfigFile(configFile)
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// Load はvから設定を読み込み、検証して返す。設定ファイルがなくてもエラーにしない。
func Load(v *viper.Viper) (*Config, error) {
	if v.ConfigFileUsed() != "" {
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) && !errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("設定ファイルの読み込みに失敗: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("設定のデシリアライズに失敗: %w", err)
	}
	cfg.API.BaseURL = strings.TrimRight(cfg.API.BaseURL, "/")

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate は設定値を検証する。
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s: %s", fe.Namespace(), fe.Tag()))
			}
			return fmt.Errorf("設定の検証に失敗: %s", strings.Join(msgs, ", "))
		}
		return fmt.Errorf("設定の検証に失敗: %w", err)
	}
	return nil
}

func findConfigFile() string {
	dirs := []string{"."}
	if home, err := os.UserHomeDir(); err == nil {
		dirs = append(dirs, filepath.Join(home, ".technotes"))
	}
	for _, dir := range dirs {
		for _, ext := range []string{".yaml", ".yml"} {
			path := filepath.Join(dir, fileName+ext)
			if _, err := os.Stat(path); err == nil {
				return path
			}
		}
	}
	return ""
}

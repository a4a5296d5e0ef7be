package config

import (
	"fmt"
	"os"
	"path"
	"strings"

	"github.com/spf13/cast"
	"gopkg.in/yaml.v3"
)

// DBConfig Database config
type DBConfig struct {
	Type     string `yaml:"type"` // postgres | sqlite
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Passwd   string `yaml:"passwd"`
	MaxConn  int    `yaml:"max_conn"`
	IdleConn int    `yaml:"idle_conn"`
	Debug    bool   `yaml:"debug"`
}

// SysConfig System config
type SysConfig struct {
	Appid    string `yaml:"appid"`
	Location string `yaml:"location"`
	Workdir  string `yaml:"workdir"`
	Debug    bool   `yaml:"debug"`
}

// WebConfig WEB Config
type WebConfig struct {
	Host   string `yaml:"host"`
	Port   int    `yaml:"port"`
	Secret string `yaml:"secret"`
}

type LogConfig struct {
	Mode       string `yaml:"mode"`
	FileEnable bool   `yaml:"file_enable"`
	Filename   string `yaml:"filename"`
}

// AdminConfig holds the back-office presentation settings.
// It is read once at startup and never mutated afterwards.
type AdminConfig struct {
	SiteTitle   string `yaml:"site_title"`
	SiteHeader  string `yaml:"site_header"`
	IndexTitle  string `yaml:"index_title"`
	Locale      string `yaml:"locale"`
	MediaURL    string `yaml:"media_url"`
	InlineExtra int    `yaml:"inline_extra"`
}

type AppConfig struct {
	System   SysConfig   `yaml:"system"`
	Web      WebConfig   `yaml:"web"`
	Database DBConfig    `yaml:"database"`
	Logger   LogConfig   `yaml:"logger"`
	Admin    AdminConfig `yaml:"admin"`
}

func (c *AppConfig) GetLogDir() string {
	return path.Join(c.System.Workdir, "logs")
}

func (c *AppConfig) GetDataDir() string {
	return path.Join(c.System.Workdir, "data")
}

func (c *AppConfig) GetMetricsDir() string {
	return path.Join(c.System.Workdir, "data", "metrics")
}

// DSN returns the connection string for the configured database type.
func (d DBConfig) DSN(workdir string) string {
	if d.Type == "sqlite" {
		if d.Name == ":memory:" || strings.HasPrefix(d.Name, "file:") {
			return d.Name
		}
		return path.Join(workdir, "data", d.Name)
	}
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%d sslmode=disable",
		d.Host, d.User, d.Passwd, d.Name, d.Port)
}

func (c *AppConfig) initDirs() {
	_ = os.MkdirAll(c.GetLogDir(), 0o755)
	_ = os.MkdirAll(c.GetDataDir(), 0o755)
	_ = os.MkdirAll(c.GetMetricsDir(), 0o755)
}

func setEnvValue(name string, val *string) {
	if v := os.Getenv(name); v != "" {
		*val = v
	}
}

func setEnvBoolValue(name string, val *bool) {
	if v := os.Getenv(name); v != "" {
		*val = cast.ToBool(v)
	}
}

func setEnvIntValue(name string, val *int) {
	if v := os.Getenv(name); v != "" {
		*val = cast.ToInt(v)
	}
}

var DefaultAppConfig = &AppConfig{
	System: SysConfig{
		Appid:    "CatalogAdmin",
		Location: "Europe/Istanbul",
		Workdir:  "/var/catalogadmin",
		Debug:    true,
	},
	Web: WebConfig{
		Host:   "0.0.0.0",
		Port:   8000,
		Secret: "9b6de5cc-0731-4a1c-8f43-c2bbcbdb9e1f",
	},
	Database: DBConfig{
		Type:     "postgres",
		Host:     "127.0.0.1",
		Port:     5432,
		Name:     "catalog",
		User:     "postgres",
		Passwd:   "postgres",
		MaxConn:  100,
		IdleConn: 10,
		Debug:    false,
	},
	Logger: LogConfig{
		Mode:       "development",
		FileEnable: true,
	},
	Admin: AdminConfig{
		SiteTitle:   "bbluechip Title",
		SiteHeader:  "bbluechip Admin Portal",
		IndexTitle:  "Welcome to bbluechip Admin Portal",
		Locale:      "tr",
		MediaURL:    "/media/",
		InlineExtra: 2,
	},
}

// LoadConfig reads the YAML file (when given) over the defaults and then
// applies CATALOG_* environment overrides.
func LoadConfig(cfile string) (*AppConfig, error) {
	cfg := *DefaultAppConfig
	if cfile == "" {
		cfile = "catalogadmin.yml"
	}
	if data, err := os.ReadFile(cfile); err == nil {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", cfile, err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config %s: %w", cfile, err)
	}

	setEnvValue("CATALOG_SYSTEM_WORKER_DIR", &cfg.System.Workdir)
	setEnvValue("CATALOG_SYSTEM_LOCATION", &cfg.System.Location)
	setEnvBoolValue("CATALOG_SYSTEM_DEBUG", &cfg.System.Debug)

	setEnvValue("CATALOG_WEB_HOST", &cfg.Web.Host)
	setEnvIntValue("CATALOG_WEB_PORT", &cfg.Web.Port)
	setEnvValue("CATALOG_WEB_SECRET", &cfg.Web.Secret)

	setEnvValue("CATALOG_DB_TYPE", &cfg.Database.Type)
	setEnvValue("CATALOG_DB_HOST", &cfg.Database.Host)
	setEnvIntValue("CATALOG_DB_PORT", &cfg.Database.Port)
	setEnvValue("CATALOG_DB_NAME", &cfg.Database.Name)
	setEnvValue("CATALOG_DB_USER", &cfg.Database.User)
	setEnvValue("CATALOG_DB_PWD", &cfg.Database.Passwd)
	setEnvBoolValue("CATALOG_DB_DEBUG", &cfg.Database.Debug)

	setEnvValue("CATALOG_LOGGER_MODE", &cfg.Logger.Mode)
	setEnvBoolValue("CATALOG_LOGGER_FILE_ENABLE", &cfg.Logger.FileEnable)
	setEnvValue("CATALOG_LOGGER_FILENAME", &cfg.Logger.Filename)
	if cfg.Logger.Filename == "" {
		cfg.Logger.Filename = path.Join(cfg.GetLogDir(), "catalogadmin.log")
	}

	setEnvValue("CATALOG_ADMIN_LOCALE", &cfg.Admin.Locale)
	setEnvValue("CATALOG_ADMIN_MEDIA_URL", &cfg.Admin.MediaURL)

	if cfg.Admin.InlineExtra < 0 {
		cfg.Admin.InlineExtra = 0
	}

	cfg.initDirs()
	return &cfg, nil
}

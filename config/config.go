package config

import (
	"encoding/json"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/joho/godotenv"
)

// AppConfig holds environment driven configuration values.
// Sensitive data should never have defaults inside code and must be provided via env files or the environment.
type AppConfig struct {
	AppPort   string
	SecretKey string
	// Gin framework configuration
	GinMode string
	GinPath string
	// Database: "sqlite" (default) or "mysql"
	DBDriver    string
	DatabaseURI string
	SQLitePath  string
	DBHost      string
	DBPort      string
	DBUser      string
	DBPassword  string
	DBName      string
	// Redis for page cache and token blacklist. Empty host keeps everything in process.
	RedisHost     string
	RedisPort     int
	RedisDB       int
	RedisPassword string
	// Logging configuration
	LogLevel      string
	LogPath       string
	LogMaxSizeMB  int
	LogMaxBackups int
	LogMaxAgeDays int
	LogCompress   bool
	// Site behaviour
	PostsPerPage      int
	IndexCacheSeconds int
	LoginURL          string
	LoginRedirectURL  string
	// Media uploads
	MediaRoot                string
	MediaURL                 string
	StaticRoot               string
	UploadMaxMB              int
	UploadOrphanGraceMinutes int
	UploadCleanerIntervalMin int
	// Sessions, CSRF and API
	SessionName        string
	SessionMaxAgeDays  int
	SessionSecure      bool
	CSRFEnabled        bool
	TokenTTLHours      int
	RateLimitPerMinute int
	AllowedOrigins     []string
}

var (
	cfg    AppConfig
	loaded bool
	mu     sync.RWMutex
)

// Load loads the application configuration. It should be called once during boot.
func Load() AppConfig {
	mu.Lock()
	defer mu.Unlock()
	if loaded {
		return cfg
	}

	// Precedence: .env -> config/config.json -> defaults -> environment variable overrides
	_ = godotenv.Load()

	var c AppConfig
	if err := loadJSONConfig(filepath.Join("config", "config.json"), &c); err != nil {
		log.Fatalf("invalid config/config.json: %v", err)
	}
	applyDefaults(&c)
	applyEnvOverrides(&c)

	if c.SecretKey == "" {
		log.Fatal("SECRET_KEY must be set in environment variables")
	}

	cfg = c
	loaded = true
	return cfg
}

// Get returns the cached configuration, loading it if necessary.
func Get() AppConfig {
	mu.RLock()
	if loaded {
		defer mu.RUnlock()
		return cfg
	}
	mu.RUnlock()
	return Load()
}

// Set replaces the active configuration. Missing values are filled with defaults.
func Set(c AppConfig) AppConfig {
	applyDefaults(&c)
	mu.Lock()
	cfg = c
	loaded = true
	mu.Unlock()
	return c
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

// loadJSONConfig reads grouped JSON sections into out if the file is present.
// Returns error only for invalid JSON.
func loadJSONConfig(path string, out *AppConfig) error {
	f, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer f.Close()

	var raw map[string]any
	if err := json.NewDecoder(f).Decode(&raw); err != nil {
		return err
	}

	getString := func(m map[string]any, key string) string {
		if s, ok := m[key].(string); ok {
			return s
		}
		return ""
	}
	getInt := func(m map[string]any, key string) int {
		if f, ok := m[key].(float64); ok {
			return int(f)
		}
		return 0
	}
	getBool := func(m map[string]any, key string) bool {
		b, _ := m[key].(bool)
		return b
	}
	getStringSlice := func(m map[string]any, key string) []string {
		arr, ok := m[key].([]any)
		if !ok {
			return nil
		}
		res := make([]string, 0, len(arr))
		for _, it := range arr {
			if s, ok := it.(string); ok {
				res = append(res, s)
			}
		}
		return res
	}

	if app, ok := raw["app"].(map[string]any); ok {
		out.AppPort = getString(app, "AppPort")
		out.SecretKey = getString(app, "SecretKey")
		out.GinMode = getString(app, "GinMode")
		out.GinPath = getString(app, "GinPath")
		out.PostsPerPage = getInt(app, "PostsPerPage")
		out.IndexCacheSeconds = getInt(app, "IndexCacheSeconds")
		out.LoginURL = getString(app, "LoginURL")
		out.LoginRedirectURL = getString(app, "LoginRedirectURL")
		out.TokenTTLHours = getInt(app, "TokenTTLHours")
		out.RateLimitPerMinute = getInt(app, "RateLimitPerMinute")
		out.AllowedOrigins = getStringSlice(app, "AllowedOrigins")
	}

	if dbs, ok := raw["database"].(map[string]any); ok {
		out.DBDriver = getString(dbs, "Driver")
		out.DatabaseURI = getString(dbs, "DatabaseURI")
		out.SQLitePath = getString(dbs, "SQLitePath")
		out.DBHost = getString(dbs, "DBHost")
		out.DBPort = getString(dbs, "DBPort")
		out.DBUser = getString(dbs, "DBUser")
		out.DBPassword = getString(dbs, "DBPassword")
		out.DBName = getString(dbs, "DBName")
	}

	if rds, ok := raw["redis"].(map[string]any); ok {
		out.RedisHost = getString(rds, "RedisHost")
		out.RedisPort = getInt(rds, "RedisPort")
		out.RedisDB = getInt(rds, "RedisDB")
		out.RedisPassword = getString(rds, "RedisPassword")
	}

	if lg, ok := raw["log"].(map[string]any); ok {
		out.LogLevel = getString(lg, "Level")
		out.LogPath = getString(lg, "Path")
		out.LogMaxSizeMB = getInt(lg, "MaxSizeMB")
		out.LogMaxBackups = getInt(lg, "MaxBackups")
		out.LogMaxAgeDays = getInt(lg, "MaxAgeDays")
		out.LogCompress = getBool(lg, "Compress")
	}

	if md, ok := raw["media"].(map[string]any); ok {
		out.MediaRoot = getString(md, "Root")
		out.MediaURL = getString(md, "URL")
		out.StaticRoot = getString(md, "StaticRoot")
		out.UploadMaxMB = getInt(md, "UploadMaxMB")
		out.UploadOrphanGraceMinutes = getInt(md, "OrphanGraceMinutes")
		out.UploadCleanerIntervalMin = getInt(md, "CleanerIntervalMinutes")
	}

	if ss, ok := raw["session"].(map[string]any); ok {
		out.SessionName = getString(ss, "Name")
		out.SessionMaxAgeDays = getInt(ss, "MaxAgeDays")
		out.SessionSecure = getBool(ss, "Secure")
		out.CSRFEnabled = getBool(ss, "CSRFEnabled")
	}

	return nil
}

// applyDefaults sets sane defaults for zero-value fields.
func applyDefaults(c *AppConfig) {
	if c.AppPort == "" {
		c.AppPort = "8000"
	}
	if c.GinMode == "" {
		c.GinMode = "release"
	}
	if c.GinPath == "" {
		c.GinPath = "logs/go_gin.log"
	}
	if c.DBDriver == "" {
		c.DBDriver = "sqlite"
	}
	if c.SQLitePath == "" {
		c.SQLitePath = "db.sqlite3"
	}
	if c.DBHost == "" {
		c.DBHost = "127.0.0.1"
	}
	if c.DBPort == "" {
		c.DBPort = "3306"
	}
	if c.DBUser == "" {
		c.DBUser = "root"
	}
	if c.DBName == "" {
		c.DBName = "yatube"
	}
	if c.RedisPort == 0 {
		c.RedisPort = 6379
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.LogMaxSizeMB == 0 {
		c.LogMaxSizeMB = 100
	}
	if c.LogMaxBackups == 0 {
		c.LogMaxBackups = 3
	}
	if c.LogMaxAgeDays == 0 {
		c.LogMaxAgeDays = 7
	}
	if c.PostsPerPage == 0 {
		c.PostsPerPage = 10
	}
	if c.IndexCacheSeconds == 0 {
		c.IndexCacheSeconds = 20
	}
	if c.LoginURL == "" {
		c.LoginURL = "/auth/login/"
	}
	if c.LoginRedirectURL == "" {
		c.LoginRedirectURL = "/"
	}
	if c.MediaRoot == "" {
		c.MediaRoot = "media"
	}
	if c.MediaURL == "" {
		c.MediaURL = "/media/"
	}
	if c.StaticRoot == "" {
		c.StaticRoot = "static"
	}
	if c.UploadMaxMB == 0 {
		c.UploadMaxMB = 5
	}
	if c.UploadOrphanGraceMinutes == 0 {
		c.UploadOrphanGraceMinutes = 60
	}
	if c.UploadCleanerIntervalMin == 0 {
		c.UploadCleanerIntervalMin = 5
	}
	if c.SessionName == "" {
		c.SessionName = "yatube_session"
	}
	if c.SessionMaxAgeDays == 0 {
		c.SessionMaxAgeDays = 14
	}
	if c.TokenTTLHours == 0 {
		c.TokenTTLHours = 72
	}
	if c.RateLimitPerMinute == 0 {
		c.RateLimitPerMinute = 60
	}
	if len(c.AllowedOrigins) == 0 {
		c.AllowedOrigins = []string{"*"}
	}
}

// applyEnvOverrides maps known environment variables onto config values when present.
func applyEnvOverrides(c *AppConfig) {
	if v := getEnv("APP_PORT", ""); v != "" {
		c.AppPort = v
	}
	if v := getEnv("SECRET_KEY", ""); v != "" {
		c.SecretKey = v
	}
	if v := getEnv("GIN_MODE", ""); v != "" {
		c.GinMode = v
	}
	if v := getEnv("GIN_PATH", ""); v != "" {
		c.GinPath = v
	}
	if v := getEnv("DB_DRIVER", ""); v != "" {
		c.DBDriver = v
	}
	if v := getEnv("DATABASE_URI", ""); v != "" {
		c.DatabaseURI = v
	}
	if v := getEnv("SQLITE_PATH", ""); v != "" {
		c.SQLitePath = v
	}
	if v := getEnv("DB_HOST", ""); v != "" {
		c.DBHost = v
	}
	if v := getEnv("DB_PORT", ""); v != "" {
		c.DBPort = v
	}
	if v := getEnv("DB_USER", ""); v != "" {
		c.DBUser = v
	}
	if v := getEnv("DB_PASSWORD", ""); v != "" {
		c.DBPassword = v
	}
	if v := getEnv("DB_NAME", ""); v != "" {
		c.DBName = v
	}
	if v := getEnv("REDIS_HOST", ""); v != "" {
		c.RedisHost = v
	}
	if v := getEnv("REDIS_PORT", ""); v != "" {
		c.RedisPort = mustParseInt(v)
	}
	if v := getEnv("REDIS_DB", ""); v != "" {
		c.RedisDB = mustParseInt(v)
	}
	if v := getEnv("REDIS_PASSWORD", ""); v != "" {
		c.RedisPassword = v
	}
	if v := getEnv("LOG_LEVEL", ""); v != "" {
		c.LogLevel = v
	}
	if v := getEnv("LOG_PATH", ""); v != "" {
		c.LogPath = v
	}
	if v := getEnv("LOG_MAX_SIZE_MB", ""); v != "" {
		c.LogMaxSizeMB = mustParseInt(v)
	}
	if v := getEnv("LOG_MAX_BACKUPS", ""); v != "" {
		c.LogMaxBackups = mustParseInt(v)
	}
	if v := getEnv("LOG_MAX_AGE_DAYS", ""); v != "" {
		c.LogMaxAgeDays = mustParseInt(v)
	}
	if v := getEnv("LOG_COMPRESS", ""); v != "" {
		c.LogCompress = v == "true"
	}
	if v := getEnv("POSTS_PER_PAGE", ""); v != "" {
		c.PostsPerPage = mustParseInt(v)
	}
	if v := getEnv("INDEX_CACHE_SECONDS", ""); v != "" {
		c.IndexCacheSeconds = mustParseInt(v)
	}
	if v := getEnv("MEDIA_ROOT", ""); v != "" {
		c.MediaRoot = v
	}
	if v := getEnv("UPLOAD_MAX_MB", ""); v != "" {
		c.UploadMaxMB = mustParseInt(v)
	}
	if v := getEnv("SESSION_SECURE", ""); v != "" {
		c.SessionSecure = v == "true"
	}
	if v := getEnv("CSRF_ENABLED", ""); v != "" {
		c.CSRFEnabled = v == "true"
	}
	if v := getEnv("TOKEN_TTL_HOURS", ""); v != "" {
		c.TokenTTLHours = mustParseInt(v)
	}
	if v := getEnv("RATE_LIMIT_PER_MINUTE", ""); v != "" {
		c.RateLimitPerMinute = mustParseInt(v)
	}
	if v := getEnv("CORS_ALLOWED_ORIGINS", ""); v != "" {
		c.AllowedOrigins = splitAndTrim(v)
	}
}

func mustParseInt(val string) int {
	i, err := strconv.Atoi(val)
	if err != nil {
		log.Fatalf("invalid integer value %s: %v", val, err)
	}
	return i
}

func splitAndTrim(raw string) []string {
	items := []string{}
	for _, item := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(item); trimmed != "" {
			items = append(items, trimmed)
		}
	}
	return items
}

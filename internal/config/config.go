package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// DefaultCaptchaVerifyURL is Google's reCAPTCHA siteverify endpoint.
const DefaultCaptchaVerifyURL = "https://www.google.com/recaptcha/api/siteverify"

// Config holds application configuration.
type Config struct {
	// StoreBackend selects the submission store: "csv" (default) or "sqlite".
	StoreBackend string `json:"store_backend,omitempty"`

	// StorePath is the CSV store file. Defaults to <config dir>/submissions.csv.
	StorePath string `json:"store_path,omitempty"`

	// SQLiteDir holds submissions.db for the sqlite backend. Defaults to the config dir.
	SQLiteDir string `json:"sqlite_dir,omitempty"`

	// SMTP settings for the staff notification. All of server, user and password
	// must be set together; leaving them all blank disables email.
	SMTPServer string `json:"smtp_server,omitempty"`
	SMTPPort   int    `json:"smtp_port,omitempty"`
	EmailUser  string `json:"email_user,omitempty"`
	EmailPass  string `json:"email_pass,omitempty"`

	// NotifyTo overrides the recipient. The sender is always EmailUser.
	NotifyTo string `json:"notify_to,omitempty"`

	// Captcha verification is skipped when CaptchaSecret is empty.
	// CaptchaSiteKey is the public key the contact page embeds.
	CaptchaSiteKey   string  `json:"captcha_site_key,omitempty"`
	CaptchaSecret    string  `json:"captcha_secret,omitempty"`
	CaptchaVerifyURL string  `json:"captcha_verify_url,omitempty"`
	CaptchaMinScore  float64 `json:"captcha_min_score,omitempty"`

	// Admin routes answer 503 until AdminPassword is set.
	AdminUser     string `json:"admin_user,omitempty"`
	AdminPassword string `json:"admin_password,omitempty"`

	AWSRegion          string `json:"aws_region,omitempty"`
	BackupBucket       string `json:"backup_bucket,omitempty"`
	BackupPrefix       string `json:"backup_prefix,omitempty"`
	AWSAccessKeyID     string `json:"aws_access_key_id,omitempty"`
	AWSSecretAccessKey string `json:"aws_secret_access_key,omitempty"`

	// ContactRatePerMinute caps contact form posts per client IP.
	ContactRatePerMinute int `json:"contact_rate_per_minute,omitempty"`

	// TrustProxy reads the client address from X-Forwarded-For, as set by a
	// single reverse proxy in front of the site. Leave off when serving directly.
	TrustProxy bool `json:"trust_proxy,omitempty"`

	LogLevel string `json:"log_level,omitempty"`

	// DisabledTools is a list of MCP tool names to exclude from registration.
	// Unknown tool names are logged as warnings.
	DisabledTools []string `json:"disabled_tools,omitempty"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		StoreBackend:         "csv",
		SMTPPort:             587,
		CaptchaVerifyURL:     DefaultCaptchaVerifyURL,
		AdminUser:            "admin",
		BackupPrefix:         "submissions",
		ContactRatePerMinute: 5,
		LogLevel:             "INFO",
	}
}

// Load loads configuration from baseDir/config.json and applies the process
// environment on top. Store locations default to files inside baseDir.
// The baseDir parameter allows tests to use t.TempDir() instead of ~/.autocare.
func Load(baseDir string) (*Config, error) {
	cfg, err := loadFileRaw(filepath.Join(baseDir, "config.json"))
	if err != nil {
		return nil, err
	}

	cfg = Merge(Merge(DefaultConfig(), cfg), FromEnv(os.LookupEnv))
	if cfg.StorePath == "" {
		cfg.StorePath = filepath.Join(baseDir, "submissions.csv")
	}
	if cfg.SQLiteDir == "" {
		cfg.SQLiteDir = baseDir
	}
	return cfg, nil
}

// LoadEnvFiles loads .env.<appEnv> and then .env from each dir into the process
// environment. Variables already set are never overridden, so the first file
// to define a key wins. Missing files are skipped.
func LoadEnvFiles(appEnv string, dirs ...string) error {
	var files []string
	for _, dir := range dirs {
		if appEnv != "" {
			files = append(files, filepath.Join(dir, ".env."+appEnv))
		}
		files = append(files, filepath.Join(dir, ".env"))
	}

	for _, f := range files {
		if _, err := os.Stat(f); err != nil {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			return fmt.Errorf("load %s: %w", filepath.Base(f), err)
		}
	}
	return nil
}

// FromEnv reads configuration from environment variables via lookup.
// Unset and unparsable numeric values are left zero so Merge keeps the base value.
func FromEnv(lookup func(string) (string, bool)) *Config {
	get := func(key string) string {
		v, _ := lookup(key)
		return strings.TrimSpace(v)
	}
	getInt := func(key string) int {
		n, err := strconv.Atoi(get(key))
		if err != nil {
			return 0
		}
		return n
	}

	cfg := &Config{
		StoreBackend:         get("STORE_BACKEND"),
		StorePath:            get("STORE_PATH"),
		SQLiteDir:            get("SQLITE_DIR"),
		SMTPServer:           get("SMTP_SERVER"),
		SMTPPort:             getInt("SMTP_PORT"),
		EmailUser:            get("EMAIL_USER"),
		EmailPass:            get("EMAIL_PASS"),
		NotifyTo:             get("NOTIFY_TO"),
		CaptchaSiteKey:       get("CAPTCHA_SITE_KEY"),
		CaptchaSecret:        get("CAPTCHA_SECRET"),
		CaptchaVerifyURL:     get("CAPTCHA_VERIFY_URL"),
		AdminUser:            get("ADMIN_USER"),
		AdminPassword:        get("ADMIN_PASSWORD"),
		AWSRegion:            get("AWS_REGION"),
		BackupBucket:         get("BACKUP_BUCKET"),
		BackupPrefix:         get("BACKUP_PREFIX"),
		AWSAccessKeyID:       get("AWS_ACCESS_KEY_ID"),
		AWSSecretAccessKey:   get("AWS_SECRET_ACCESS_KEY"),
		ContactRatePerMinute: getInt("CONTACT_RATE_PER_MINUTE"),
		LogLevel:             get("LOG_LEVEL"),
	}
	if trust, err := strconv.ParseBool(get("TRUST_PROXY")); err == nil {
		cfg.TrustProxy = trust
	}
	if score, err := strconv.ParseFloat(get("CAPTCHA_MIN_SCORE"), 64); err == nil {
		cfg.CaptchaMinScore = score
	}
	if tools := get("DISABLED_TOOLS"); tools != "" {
		cfg.DisabledTools = strings.Split(tools, ",")
	}
	return cfg
}

// Validate checks settings that would otherwise fail at first use.
func (c *Config) Validate() error {
	switch c.StoreBackend {
	case "csv", "sqlite":
	default:
		return fmt.Errorf("store_backend must be csv or sqlite, got %q", c.StoreBackend)
	}

	set := 0
	for _, v := range []string{c.SMTPServer, c.EmailUser, c.EmailPass} {
		if v != "" {
			set++
		}
	}
	if set != 0 && set != 3 {
		return errors.New("smtp_server, email_user and email_pass must be set together")
	}
	if c.SMTPPort < 0 || c.SMTPPort > 65535 {
		return fmt.Errorf("smtp_port out of range: %d", c.SMTPPort)
	}

	if c.CaptchaMinScore < 0 || c.CaptchaMinScore > 1 {
		return fmt.Errorf("captcha_min_score must be between 0 and 1, got %v", c.CaptchaMinScore)
	}
	if c.ContactRatePerMinute < 0 {
		return fmt.Errorf("contact_rate_per_minute must not be negative")
	}
	return nil
}

// SMTPEnabled reports whether staff notifications can be sent.
func (c *Config) SMTPEnabled() bool {
	return c.SMTPServer != "" && c.EmailUser != "" && c.EmailPass != ""
}

// Recipient returns the notification address.
func (c *Config) Recipient() string {
	if c.NotifyTo != "" {
		return c.NotifyTo
	}
	return c.EmailUser
}

// loadFileRaw loads configuration from a specific file path.
// Returns zero-valued config if the file doesn't exist (not defaults).
func loadFileRaw(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &Config{}, nil
		}
		return nil, err
	}

	cfg := &Config{}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", filepath.Base(configPath), err)
	}
	return cfg, nil
}

// Merge combines base and overlay configs.
// Overlay values take precedence for scalars; arrays are merged and deduplicated.
func Merge(base, overlay *Config) *Config {
	result := &Config{
		StoreBackend:         pick(overlay.StoreBackend, base.StoreBackend),
		StorePath:            pick(overlay.StorePath, base.StorePath),
		SQLiteDir:            pick(overlay.SQLiteDir, base.SQLiteDir),
		SMTPServer:           pick(overlay.SMTPServer, base.SMTPServer),
		SMTPPort:             pick(overlay.SMTPPort, base.SMTPPort),
		EmailUser:            pick(overlay.EmailUser, base.EmailUser),
		EmailPass:            pick(overlay.EmailPass, base.EmailPass),
		NotifyTo:             pick(overlay.NotifyTo, base.NotifyTo),
		CaptchaSiteKey:       pick(overlay.CaptchaSiteKey, base.CaptchaSiteKey),
		CaptchaSecret:        pick(overlay.CaptchaSecret, base.CaptchaSecret),
		CaptchaVerifyURL:     pick(overlay.CaptchaVerifyURL, base.CaptchaVerifyURL),
		CaptchaMinScore:      pick(overlay.CaptchaMinScore, base.CaptchaMinScore),
		AdminUser:            pick(overlay.AdminUser, base.AdminUser),
		AdminPassword:        pick(overlay.AdminPassword, base.AdminPassword),
		AWSRegion:            pick(overlay.AWSRegion, base.AWSRegion),
		BackupBucket:         pick(overlay.BackupBucket, base.BackupBucket),
		BackupPrefix:         pick(overlay.BackupPrefix, base.BackupPrefix),
		AWSAccessKeyID:       pick(overlay.AWSAccessKeyID, base.AWSAccessKeyID),
		AWSSecretAccessKey:   pick(overlay.AWSSecretAccessKey, base.AWSSecretAccessKey),
		ContactRatePerMinute: pick(overlay.ContactRatePerMinute, base.ContactRatePerMinute),
		TrustProxy:           overlay.TrustProxy || base.TrustProxy,
		LogLevel:             pick(overlay.LogLevel, base.LogLevel),
	}

	result.DisabledTools = mergeStringSlice(base.DisabledTools, overlay.DisabledTools)
	return result
}

// pick returns overlay unless it is the zero value.
func pick[T comparable](overlay, base T) T {
	var zero T
	if overlay != zero {
		return overlay
	}
	return base
}

// mergeStringSlice combines two slices, trims whitespace, and removes duplicates.
func mergeStringSlice(a, b []string) []string {
	seen := make(map[string]bool)
	result := make([]string, 0, len(a)+len(b))

	for _, list := range [][]string{a, b} {
		for _, s := range list {
			s = strings.TrimSpace(s)
			if s != "" && !seen[s] {
				seen[s] = true
				result = append(result, s)
			}
		}
	}

	if len(result) == 0 {
		return nil
	}
	return result
}

package config

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Document store backends.
const (
	BackendSQLite = "sqlite"
	BackendMongo  = "mongo"
	BackendMemory = "memory"
)

type Cloudinary struct {
	CloudName    string `yaml:"cloud_name"`
	UploadPreset string `yaml:"upload_preset"`
	Folder       string `yaml:"folder"`
}

type PageSizes struct {
	Orders    int `yaml:"orders"`
	Products  int `yaml:"products"`
	Customers int `yaml:"customers"`
	Messages  int `yaml:"messages"`
	Shop      int `yaml:"shop"`
}

// Keys holds the base64 secrets as written in the file or environment.
type Keys struct {
	CSRF       string `yaml:"csrf"`
	Session    string `yaml:"session"`
	ResetToken string `yaml:"reset_token"`
}

type Config struct {
	Port           string        `yaml:"port"`
	DocStore       string        `yaml:"doc_store"`
	DBPath         string        `yaml:"db_path"`
	MongoURI       string        `yaml:"mongo_uri"`
	MongoDatabase  string        `yaml:"mongo_database"`
	MemorySnapshot string        `yaml:"memory_snapshot"`
	CookieDomain   string        `yaml:"cookie_domain"`
	CookieSecure   bool          `yaml:"cookie_secure"`
	PublicBaseURL  string        `yaml:"public_base_url"`
	StoreName      string        `yaml:"store_name"`
	UploadDir      string        `yaml:"upload_dir"`
	Cloudinary     Cloudinary    `yaml:"cloudinary"`
	PageSizes      PageSizes     `yaml:"page_sizes"`
	ListTTL        time.Duration `yaml:"list_ttl"`
	Keys           Keys          `yaml:"keys"`

	CSRFKey       []byte `yaml:"-"`
	SessionKey    []byte `yaml:"-"`
	ResetTokenKey []byte `yaml:"-"`
}

func defaults() *Config {
	return &Config{
		Port:          "8585",
		DocStore:      BackendSQLite,
		DBPath:        "./auranova.db",
		MongoDatabase: "auranova",
		PublicBaseURL: "http://localhost:8585",
		StoreName:     "Auranova Afrique",
		UploadDir:     "static/uploads",
		Cloudinary:    Cloudinary{Folder: "auranova-products"},
		PageSizes:     PageSizes{Orders: 15, Products: 10, Customers: 15, Messages: 15, Shop: 12},
		ListTTL:       30 * time.Minute,
	}
}

// LoadConfig starts from the defaults, applies the YAML file named by
// CONFIG_FILE if set, then lets environment variables override both.
func LoadConfig() (*Config, error) {
	cfg := defaults()
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}

	cfg.Port = getEnv("PORT", cfg.Port)
	cfg.DocStore = getEnv("DOC_STORE", cfg.DocStore)
	cfg.DBPath = getEnv("DB_PATH", cfg.DBPath)
	cfg.MongoURI = getEnv("MONGO_URI", cfg.MongoURI)
	cfg.MongoDatabase = getEnv("MONGO_DATABASE", cfg.MongoDatabase)
	cfg.MemorySnapshot = getEnv("MEMORY_SNAPSHOT", cfg.MemorySnapshot)
	cfg.CookieDomain = getEnv("COOKIE_DOMAIN", cfg.CookieDomain)
	cfg.CookieSecure = getEnv("COOKIE_SECURE", strconv.FormatBool(cfg.CookieSecure)) == "true"
	cfg.PublicBaseURL = getEnv("PUBLIC_BASE_URL", cfg.PublicBaseURL)
	cfg.StoreName = getEnv("STORE_NAME", cfg.StoreName)
	cfg.UploadDir = getEnv("UPLOAD_DIR", cfg.UploadDir)
	cfg.Cloudinary.CloudName = getEnv("CLOUDINARY_CLOUD_NAME", cfg.Cloudinary.CloudName)
	cfg.Cloudinary.UploadPreset = getEnv("CLOUDINARY_UPLOAD_PRESET", cfg.Cloudinary.UploadPreset)
	cfg.Cloudinary.Folder = getEnv("CLOUDINARY_FOLDER", cfg.Cloudinary.Folder)
	cfg.PageSizes.Orders = getInt("ORDERS_PAGE_SIZE", cfg.PageSizes.Orders)
	cfg.PageSizes.Products = getInt("PRODUCTS_PAGE_SIZE", cfg.PageSizes.Products)
	cfg.PageSizes.Customers = getInt("CUSTOMERS_PAGE_SIZE", cfg.PageSizes.Customers)
	cfg.PageSizes.Messages = getInt("MESSAGES_PAGE_SIZE", cfg.PageSizes.Messages)
	cfg.PageSizes.Shop = getInt("SHOP_PAGE_SIZE", cfg.PageSizes.Shop)

	cfg.CSRFKey = decodeKey("CSRF_KEY", getEnv("CSRF_KEY", cfg.Keys.CSRF))
	cfg.SessionKey = decodeKey("SESSION_KEY", getEnv("SESSION_KEY", cfg.Keys.Session))
	cfg.ResetTokenKey = decodeKey("RESET_TOKEN_KEY", getEnv("RESET_TOKEN_KEY", cfg.Keys.ResetToken))

	// Make sure port is valid
	if _, err := strconv.Atoi(cfg.Port); err != nil {
		slog.Error("Invalid PORT. Falling back to default.", "PORT", cfg.Port)
		cfg.Port = "8585"
	}

	switch cfg.DocStore {
	case BackendSQLite, BackendMemory:
	case BackendMongo:
		if cfg.MongoURI == "" {
			return nil, fmt.Errorf("DOC_STORE=mongo needs MONGO_URI")
		}
	default:
		return nil, fmt.Errorf("unknown DOC_STORE %q (want sqlite, mongo or memory)", cfg.DocStore)
	}
	return cfg, nil
}

// UseCloudinary reports whether uploads go to the image host rather than UploadDir.
func (c *Config) UseCloudinary() bool {
	return c.Cloudinary.CloudName != "" && c.Cloudinary.UploadPreset != ""
}

func (c *Config) loadFile(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(raw, c); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	slog.Info("Loaded config file", "path", path)
	return nil
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getInt(key string, defaultValue int) int {
	v, exists := os.LookupEnv(key)
	if !exists {
		return defaultValue
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 1 {
		slog.Warn("Ignoring invalid page size", "key", key, "value", v)
		return defaultValue
	}
	return n
}

// decodeKey reads a base64 secret of at least 32 bytes. Anything else gets a
// random key, which changes on every restart.
func decodeKey(name, encoded string) []byte {
	if encoded == "" {
		slog.Warn(name + " not set. Generating a random key for development. PLEASE SET " + name + " IN PRODUCTION!")
		return generateRandomBytes(32)
	}
	key, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil || len(key) < 32 {
		slog.Warn(name + " is invalid or too short (min 32 bytes). Generating a random key for development.")
		return generateRandomBytes(32)
	}
	return key
}

func generateRandomBytes(n int) []byte {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		slog.Error("Failed to read random bytes", "error", err)
		panic(err)
	}
	return b
}

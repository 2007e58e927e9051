package config

import (
	"encoding/base64"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDefaults(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("PORT", "not-a-port")
	cfg, err := LoadConfig()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Port != "8585" || cfg.DocStore != BackendSQLite || cfg.DBPath != "./auranova.db" {
		t.Errorf("cfg = %+v", cfg)
	}
	if cfg.PageSizes != (PageSizes{Orders: 15, Products: 10, Customers: 15, Messages: 15, Shop: 12}) {
		t.Errorf("page sizes = %+v", cfg.PageSizes)
	}
	if len(cfg.CSRFKey) != 32 || len(cfg.SessionKey) != 32 || len(cfg.ResetTokenKey) != 32 {
		t.Error("missing keys should fall back to random 32-byte keys")
	}
	if cfg.UseCloudinary() {
		t.Error("cloudinary enabled without credentials")
	}
}

func TestFileThenEnv(t *testing.T) {
	key := base64.StdEncoding.EncodeToString([]byte(strings.Repeat("k", 32)))
	path := filepath.Join(t.TempDir(), "auranova.yaml")
	yml := `
port: "9000"
doc_store: memory
memory_snapshot: /tmp/snap.json
list_ttl: 5m
page_sizes:
  orders: 25
cloudinary:
  cloud_name: demo
  upload_preset: unsigned
keys:
  session: ` + key + `
`
	if err := os.WriteFile(path, []byte(yml), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("CONFIG_FILE", path)
	t.Setenv("PORT", "9100")
	t.Setenv("SHOP_PAGE_SIZE", "24")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Port != "9100" {
		t.Errorf("env should win over file, port = %s", cfg.Port)
	}
	if cfg.DocStore != BackendMemory || cfg.MemorySnapshot != "/tmp/snap.json" || cfg.ListTTL != 5*time.Minute {
		t.Errorf("file values = %+v", cfg)
	}
	if cfg.PageSizes.Orders != 25 || cfg.PageSizes.Products != 10 || cfg.PageSizes.Shop != 24 {
		t.Errorf("page sizes = %+v", cfg.PageSizes)
	}
	if string(cfg.SessionKey) != strings.Repeat("k", 32) {
		t.Errorf("session key = %q", cfg.SessionKey)
	}
	if !cfg.UseCloudinary() || cfg.Cloudinary.Folder != "auranova-products" {
		t.Errorf("cloudinary = %+v", cfg.Cloudinary)
	}
}

func TestRejectsBadBackend(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("DOC_STORE", "postgres")
	if _, err := LoadConfig(); err == nil {
		t.Error("unknown backend accepted")
	}
	t.Setenv("DOC_STORE", "mongo")
	t.Setenv("MONGO_URI", "")
	if _, err := LoadConfig(); err == nil {
		t.Error("mongo without a URI accepted")
	}
}

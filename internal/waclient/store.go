package waclient

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/mattn/go-sqlite3"
	"go.mau.fi/whatsmeow/store/sqlstore"

	"github.com/arkbridge/adapter-whatsapp-web/pkg/env"
	"github.com/arkbridge/adapter-whatsapp-web/pkg/log"
)

// DefaultStorePath is where the auth session database lives unless
// WHATSAPP_DATASTORE_URI points elsewhere.
const DefaultStorePath = "data/adapter-whatsapp-web/session.db"

// NewDatastore opens the whatsmeow auth-session container. The driver comes
// from WHATSAPP_DATASTORE_TYPE (default sqlite3 under DefaultStorePath);
// postgres DSNs are normalized for pgx simple protocol.
func NewDatastore(ctx context.Context) (*sqlstore.Container, error) {
	driver := normalizeDatastoreDriver(env.GetEnvStringOrDefault("WHATSAPP_DATASTORE_TYPE", "sqlite3"))

	dsn, err := env.GetEnvString("WHATSAPP_DATASTORE_URI")
	if err != nil {
		if driver != "sqlite3" {
			return nil, fmt.Errorf("WHATSAPP_DATASTORE_URI is required for driver %s", driver)
		}
		if err := os.MkdirAll(filepath.Dir(DefaultStorePath), 0o755); err != nil {
			return nil, fmt.Errorf("create datastore directory: %w", err)
		}
		dsn = "file:" + DefaultStorePath
	}
	dsn = normalizeDatastoreDSN(driver, dsn)

	log.Print("datastore").WithField("driver", driver).Info("Initializing WhatsApp datastore")

	container, err := sqlstore.New(ctx, driver, dsn, nil)
	if err != nil {
		return nil, fmt.Errorf("open datastore: %w", err)
	}
	if err := container.Upgrade(ctx); err != nil {
		return nil, fmt.Errorf("upgrade datastore schema: %w", err)
	}
	return container, nil
}

func normalizeDatastoreDriver(driver string) string {
	switch strings.ToLower(driver) {
	case "postgresql", "postgres", "pgx":
		return "pgx"
	case "sqlite", "sqlite3":
		return "sqlite3"
	default:
		return strings.ToLower(driver)
	}
}

func normalizeDatastoreDSN(driver string, dsn string) string {
	appendParam := func(current string, key string, value string) string {
		if strings.Contains(current, key+"=") {
			return current
		}
		separator := "?"
		if strings.Contains(current, "?") {
			if strings.HasSuffix(current, "?") || strings.HasSuffix(current, "&") {
				separator = ""
			} else {
				separator = "&"
			}
		}
		return current + separator + key + "=" + value
	}

	switch driver {
	case "pgx":
		dsn = appendParam(dsn, "prefer_simple_protocol", "true")
		dsn = appendParam(dsn, "statement_cache_capacity", "0")
		dsn = appendParam(dsn, "default_query_exec_mode", "simple_protocol")
	case "sqlite3":
		dsn = appendParam(dsn, "_foreign_keys", "on")
	}
	return dsn
}

package config

import (
	"fmt"
	"log"
	"os"
	"time"

	pkgcfg "github.com/Skotchmaster/parts_market/pkg/config"
	"github.com/joho/godotenv"
)

const (
	StorePostgres = "postgres"
	StoreMongo    = "mongo"

	CatalogDB    = "db"
	CatalogES    = "es"
	CatalogMongo = "mongo"
)

type Config struct {
	ServiceName string
	ServerPort  int
	LogLevel    string

	StoreBackend string
	DatabaseURL  string
	MongoURI     string
	MongoDB      string

	CatalogBackend string
	ESURL          string
	ESUser         string
	ESPassword     string
	ESIndex        string

	KafkaBrokers []string

	JWTSecret []byte

	WriteTimeout          time.Duration
	CartMaxRetries        int
	StockCheckConcurrency int
	ReconcileInterval     time.Duration
	ReconcileGrace        time.Duration
}

// Load reads .env (if present) and the process environment.
func Load(envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	if err := godotenv.Load(envFiles...); err != nil {
		log.Printf("notice: .env not loaded (%v), using process environment", err)
	}

	cfg := &Config{
		ServiceName: pkgcfg.EnvDefault("SERVICE_NAME", "parts-market"),
		ServerPort:  pkgcfg.EnvIntDefault("SERVER_PORT", 8080),
		LogLevel:    pkgcfg.EnvDefault("LOG_LEVEL", "info"),

		StoreBackend: pkgcfg.EnvDefault("STORE_BACKEND", StorePostgres),
		DatabaseURL:  os.Getenv("DATABASE_URL"),
		MongoURI:     os.Getenv("MONGO_URI"),
		MongoDB:      pkgcfg.EnvDefault("MONGO_DB", "parts_market"),

		CatalogBackend: pkgcfg.EnvDefault("CATALOG_BACKEND", CatalogDB),
		ESURL:          os.Getenv("ES_URL"),
		ESUser:         os.Getenv("ES_USER"),
		ESPassword:     os.Getenv("ES_PASSWORD"),
		ESIndex:        pkgcfg.EnvDefault("ES_INDEX", "parts"),

		KafkaBrokers: pkgcfg.CSV(os.Getenv("KAFKA_BROKERS")),

		JWTSecret: []byte(os.Getenv("JWT_SECRET")),

		WriteTimeout:          pkgcfg.EnvDurationDefault("WRITE_TIMEOUT", 5*time.Second),
		CartMaxRetries:        pkgcfg.EnvIntDefault("CART_MAX_RETRIES", 3),
		StockCheckConcurrency: pkgcfg.EnvIntDefault("STOCK_CHECK_CONCURRENCY", 4),
		ReconcileInterval:     pkgcfg.EnvDurationDefault("RECONCILE_INTERVAL", time.Minute),
		ReconcileGrace:        pkgcfg.EnvDurationDefault("RECONCILE_GRACE", time.Minute),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if err := pkgcfg.RequiredBytes(c.JWTSecret, "JWT_SECRET"); err != nil {
		return err
	}

	switch c.StoreBackend {
	case StorePostgres:
		if err := pkgcfg.Required(c.DatabaseURL, "DATABASE_URL"); err != nil {
			return err
		}
	case StoreMongo:
		if err := pkgcfg.Required(c.MongoURI, "MONGO_URI"); err != nil {
			return err
		}
	default:
		return fmt.Errorf("STORE_BACKEND must be %s or %s, got %q", StorePostgres, StoreMongo, c.StoreBackend)
	}

	switch c.CatalogBackend {
	case CatalogDB:
	case CatalogES:
		if err := pkgcfg.Required(c.ESURL, "ES_URL"); err != nil {
			return err
		}
	case CatalogMongo:
		if c.StoreBackend != StoreMongo {
			return fmt.Errorf("CATALOG_BACKEND=mongo needs STORE_BACKEND=mongo")
		}
	default:
		return fmt.Errorf("CATALOG_BACKEND must be db, es or mongo, got %q", c.CatalogBackend)
	}

	if c.WriteTimeout <= 0 {
		return fmt.Errorf("WRITE_TIMEOUT must be positive")
	}
	return nil
}

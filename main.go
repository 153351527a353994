package main

import (
	"context"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/example/shopping-list/modules/api"
	"github.com/example/shopping-list/modules/auth"
	"github.com/example/shopping-list/modules/broadcast"
	"github.com/example/shopping-list/modules/cache"
	"github.com/example/shopping-list/modules/catalog"
	"github.com/example/shopping-list/modules/importer"
	gfshutdown "github.com/gelmium/graceful-shutdown"
	"github.com/go-monolith/mono"
	"github.com/joho/godotenv"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment")
	}

	shutdownTimeout := getEnvDuration("SHUTDOWN_TIMEOUT", 30*time.Second)
	apiCfg, cacheCfg, authCfg, catalogCfg, importerCfg := loadConfig()

	log.Println("=== Shopping List ===")
	log.Printf("HTTP Address: %s", apiCfg.Addr)
	log.Printf("Catalog Driver: %s", catalogCfg.Driver)
	log.Printf("Max Upload Size: %d bytes", apiCfg.MaxUploadSize)

	busPayload := importer.BusPayloadFor(apiCfg.MaxUploadSize)
	log.Printf("Bus Max Payload: %d bytes", busPayload)

	app, err := mono.NewMonoApplication(
		mono.WithShutdownTimeout(shutdownTimeout),
		mono.WithNATSMaxPayload(busPayload),
		mono.WithLogLevel(mono.LogLevelInfo),
		mono.WithLogFormat(mono.LogFormatText),
	)
	if err != nil {
		log.Fatalf("Failed to create application: %v", err)
	}

	cacheModule := cache.NewModule(cacheCfg)
	authModule := auth.NewModule(authCfg)
	catalogModule := catalog.NewModule(catalogCfg)
	importerModule := importer.NewModule(importerCfg, cacheModule.Cache())
	broadcastModule := broadcast.NewModule()
	// The hub is shared in process; it is not a bus service.
	apiModule := api.NewModule(apiCfg, broadcastModule.Hub(), cacheModule.Cache())

	// Order: independent modules first, then dependent modules
	app.Register(cacheModule)
	app.Register(authModule)
	app.Register(catalogModule)
	app.Register(importerModule)  // Depends on catalog and cache
	app.Register(broadcastModule) // Consumes catalog change events
	app.Register(apiModule)       // Depends on auth, catalog, importer and cache

	if err := app.Start(context.Background()); err != nil {
		log.Fatalf("Failed to start application: %v", err)
	}

	printStartupInfo(apiCfg.Addr)

	wait := gfshutdown.GracefulShutdown(
		context.Background(),
		shutdownTimeout,
		map[string]gfshutdown.Operation{
			"mono-app": func(ctx context.Context) error {
				log.Println("Graceful shutdown initiated...")
				return app.Stop(ctx)
			},
		},
	)

	exitCode := <-wait
	log.Printf("Application exited with code: %d", exitCode)
	os.Exit(exitCode)
}

func loadConfig() (api.Config, cache.Config, auth.Config, catalog.Config, importer.Config) {
	apiCfg := api.DefaultConfig()
	apiCfg.Addr = getEnv("HTTP_ADDR", apiCfg.Addr)
	apiCfg.CORSOrigins = getEnv("CORS_ALLOWED_ORIGINS", apiCfg.CORSOrigins)
	apiCfg.MaxUploadSize = getEnvInt64("MAX_UPLOAD_SIZE", apiCfg.MaxUploadSize)
	// Photos travel over the bus, base64 encoded inside the scan-photo request.
	if limit := importer.MaxPhotoSize(importer.MaxBusPayload); apiCfg.MaxUploadSize > limit {
		log.Printf("Warning: MAX_UPLOAD_SIZE %d exceeds what the bus can carry, using %d", apiCfg.MaxUploadSize, limit)
		apiCfg.MaxUploadSize = limit
	}
	apiCfg.AuthLimit.Requests = getEnvInt("RATE_LIMIT_AUTH_PER_MINUTE", apiCfg.AuthLimit.Requests)
	apiCfg.ScanLimit.Requests = getEnvInt("RATE_LIMIT_SCANS_PER_HOUR", apiCfg.ScanLimit.Requests)

	cacheCfg := cache.DefaultConfig()
	// An empty REDIS_ADDR disables the barcode cache.
	cacheCfg.RedisAddr = os.Getenv("REDIS_ADDR")
	cacheCfg.Prefix = getEnv("CACHE_PREFIX", cacheCfg.Prefix)
	cacheCfg.TTL = getEnvDuration("CACHE_TTL", cacheCfg.TTL)

	authCfg := auth.DefaultConfig()
	authCfg.DBPath = getEnv("AUTH_DB_PATH", authCfg.DBPath)
	authCfg.JWT.SecretKey = getEnv("JWT_SECRET_KEY", authCfg.JWT.SecretKey)
	authCfg.JWT.Issuer = getEnv("JWT_ISSUER", authCfg.JWT.Issuer)
	authCfg.JWT.AccessTokenDuration = getEnvDuration("JWT_ACCESS_TTL", authCfg.JWT.AccessTokenDuration)
	authCfg.JWT.RefreshTokenDuration = getEnvDuration("JWT_REFRESH_TTL", authCfg.JWT.RefreshTokenDuration)
	authCfg.BcryptCost = getEnvInt("BCRYPT_COST", authCfg.BcryptCost)

	catalogCfg := catalog.DefaultConfig()
	catalogCfg.Driver = getEnv("CATALOG_DRIVER", catalogCfg.Driver)
	catalogCfg.DBPath = getEnv("CATALOG_DB_PATH", catalogCfg.DBPath)
	catalogCfg.DatabaseURL = getEnv("DATABASE_URL", catalogCfg.DatabaseURL)
	catalogCfg.Debug = getEnvBool("DB_DEBUG", catalogCfg.Debug)

	importerCfg := importer.DefaultConfig()
	importerCfg.OCR.APIURL = getEnv("OCR_API_URL", importerCfg.OCR.APIURL)
	importerCfg.OCR.APIKey = getEnv("OCR_API_KEY", importerCfg.OCR.APIKey)
	importerCfg.OCR.Model = getEnv("OCR_MODEL", importerCfg.OCR.Model)
	importerCfg.OCR.Timeout = getEnvDuration("OCR_TIMEOUT", importerCfg.OCR.Timeout)
	importerCfg.Barcode.BaseURL = getEnv("BARCODE_API_URL", importerCfg.Barcode.BaseURL)
	importerCfg.Barcode.Timeout = getEnvDuration("BARCODE_TIMEOUT", importerCfg.Barcode.Timeout)
	importerCfg.ArchiveNATS = getEnv("SCAN_ARCHIVE_NATS_URL", importerCfg.ArchiveNATS)

	return apiCfg, cacheCfg, authCfg, catalogCfg, importerCfg
}

func printStartupInfo(addr string) {
	log.Println("")
	log.Println("Application started successfully!")
	log.Println("")
	log.Printf("REST API Endpoints (http://localhost%s):", addr)
	log.Println("")
	log.Println("  Public Endpoints:")
	log.Println("  POST   /api/v1/auth/register          - Register a family account")
	log.Println("  POST   /api/v1/auth/login             - Login and get tokens")
	log.Println("  POST   /api/v1/auth/refresh           - Refresh access token")
	log.Println("  GET    /health                        - Health check")
	log.Println("")
	log.Println("  Protected Endpoints (require Bearer token):")
	log.Println("  GET    /api/v1/categories             - List categories")
	log.Println("  GET    /api/v1/products               - List products (?category=&q=)")
	log.Println("  GET    /api/v1/products/manage        - Grouped management view")
	log.Println("  POST   /api/v1/products               - Add a product")
	log.Println("  PATCH  /api/v1/products/:id           - Edit a product")
	log.Println("  PUT    /api/v1/products/:id/quantity  - Set quantity")
	log.Println("  PUT    /api/v1/products/:id/checked   - Tick a product off")
	log.Println("  DELETE /api/v1/products/:id           - Delete a product")
	log.Println("  POST   /api/v1/products/reset         - Reset all quantities")
	log.Println("  POST   /api/v1/products/bulk          - Move or delete selected products")
	log.Println("  POST   /api/v1/reconcile              - Merge a batch of names")
	log.Println("  GET    /api/v1/summary                - Active list with progress")
	log.Println("  GET    /api/v1/export/{text,pdf,csv,qr}")
	log.Println("  POST   /api/v1/import/photo           - Read a photographed list")
	log.Println("  GET    /api/v1/import/barcode/:code   - Look up a barcode (?refresh=true)")
	log.Println("  GET    /api/v1/cache/stats            - Barcode cache statistics")
	log.Println("  DELETE /api/v1/cache/barcodes         - Drop cached barcode labels")
	log.Println("  GET    /ws?token=                     - Live catalog changes")
	log.Println("")
	log.Println("Press Ctrl+C to shutdown gracefully")
}

// getEnv returns environment variable value or default.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt returns environment variable as int or default.
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
		log.Printf("Warning: invalid int value for %s: %s, using default: %d", key, value, defaultValue)
	}
	return defaultValue
}

// getEnvInt64 returns environment variable as int64 or default.
func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intVal
		}
		log.Printf("Warning: invalid int64 value for %s: %s, using default: %d", key, value, defaultValue)
	}
	return defaultValue
}

// getEnvDuration returns environment variable as duration or default.
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
		log.Printf("Warning: invalid duration value for %s: %s, using default: %s", key, value, defaultValue)
	}
	return defaultValue
}

// getEnvBool returns environment variable as bool or default.
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
		log.Printf("Warning: invalid bool value for %s: %s, using default: %t", key, value, defaultValue)
	}
	return defaultValue
}

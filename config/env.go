package config

import (
	"bufio"
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"strings"
	"sync"
	"time"
)

const (
	defaultAPIBaseURL   = "http://localhost:5000"
	defaultAPITimeout   = 30 * time.Second
	defaultLocalStore   = "file"
	defaultStoreRoot    = ".kisan"
	defaultDBDriver     = "sqlite"
	defaultSQLiteDSN    = "kisan.db"
	defaultRedisAddr    = "localhost:6379"
	defaultCurrency     = "INR"
	defaultMerchantName = "Farmers Online Trading"
	defaultAppEnv       = "local"
	defaultWeatherURL   = "https://api.openweathermap.org"
)

var (
	loadOnce sync.Once
	loadErr  error

	mu     sync.RWMutex
	values = defaultValues()
)

// Load reads config/app.json and .env once. Missing files are ignored.
func Load() error {
	loadOnce.Do(func() {
		loadErr = loadFromFiles("config/app.json", ".env")
	})
	return loadErr
}

func defaultValues() map[string]string {
	return map[string]string{
		"APP_ENV":          defaultAppEnv,
		"API_BASE_URL":     defaultAPIBaseURL,
		"LOCAL_STORE":      defaultLocalStore,
		"LOCAL_STORE_ROOT": defaultStoreRoot,
		"DB_DRIVER":        defaultDBDriver,
		"REDIS_ADDR":       defaultRedisAddr,
		"PAYMENT_CURRENCY": defaultCurrency,
		"PAYMENT_MERCHANT": defaultMerchantName,
	}
}

func AppEnv() string {
	_ = Load()
	return get("APP_ENV", defaultAppEnv)
}

// ── API ──────────────────────────────────────────────────────────────────────

func APIBaseURL() string {
	_ = Load()
	return strings.TrimRight(get("API_BASE_URL", defaultAPIBaseURL), "/")
}

func APITimeout() time.Duration {
	_ = Load()
	d, err := time.ParseDuration(get("API_TIMEOUT", ""))
	if err != nil || d <= 0 {
		return defaultAPITimeout
	}
	return d
}

// ChatURL defaults to the API host with a ws scheme and the /ws path.
func ChatURL() string {
	_ = Load()
	if v := get("CHAT_URL", ""); v != "" {
		return v
	}
	u, err := url.Parse(APIBaseURL())
	if err != nil {
		return "ws://localhost:5000/ws"
	}
	if u.Scheme == "https" {
		u.Scheme = "wss"
	} else {
		u.Scheme = "ws"
	}
	u.Path = "/ws"
	return u.String()
}

// ── Payment widget ───────────────────────────────────────────────────────────

func PaymentKeyID() string    { _ = Load(); return get("PAYMENT_KEY_ID", "") }
func PaymentCurrency() string { _ = Load(); return get("PAYMENT_CURRENCY", defaultCurrency) }
func PaymentMerchant() string { _ = Load(); return get("PAYMENT_MERCHANT", defaultMerchantName) }

// ── Local store ──────────────────────────────────────────────────────────────

func LocalStoreDriver() string {
	_ = Load()
	return strings.ToLower(get("LOCAL_STORE", defaultLocalStore))
}

func LocalStoreRoot() string {
	_ = Load()
	return get("LOCAL_STORE_ROOT", defaultStoreRoot)
}

func RedisAddr() string {
	_ = Load()
	return get("REDIS_ADDR", defaultRedisAddr)
}

func RedisPassword() string {
	_ = Load()
	return get("REDIS_PASSWORD", "")
}

func DatabaseDriver() string {
	_ = Load()

	driver := strings.ToLower(get("DB_DRIVER", defaultDBDriver))
	switch driver {
	case "sqlite", "postgres", "mysql", "sqlserver":
		return driver
	default:
		return defaultDBDriver
	}
}

func DatabaseDSN() string {
	_ = Load()
	return get("DATABASE_DSN", defaultSQLiteDSN)
}

// ── Weather ──────────────────────────────────────────────────────────────────

func WeatherAPIKey() string  { _ = Load(); return get("WEATHER_API_KEY", "") }
func WeatherBaseURL() string { _ = Load(); return strings.TrimRight(get("WEATHER_BASE_URL", defaultWeatherURL), "/") }

func MongoURI() string        { _ = Load(); return get("MONGO_URI", "mongodb://localhost:27017") }
func MongoDatabase() string   { _ = Load(); return get("MONGO_DATABASE", "kisan") }
func MongoCollection() string { _ = Load(); return get("MONGO_COLLECTION", "local_store") }

func StorageS3Bucket() string   { _ = Load(); return get("S3_BUCKET", "") }
func StorageS3Region() string   { _ = Load(); return get("S3_REGION", "us-east-1") }
func StorageS3Key() string      { _ = Load(); return get("S3_KEY", "") }
func StorageS3Secret() string   { _ = Load(); return get("S3_SECRET", "") }
func StorageS3Endpoint() string { _ = Load(); return get("S3_ENDPOINT", "") }
func StorageS3Prefix() string   { _ = Load(); return get("S3_PREFIX", "kisan/") }

func loadFromFiles(configPath, envPath string) error {
	loaded := defaultValues()

	if err := mergeJSONConfig(configPath, loaded); err != nil {
		if !os.IsNotExist(err) {
			return err
		}
	}

	if err := mergeDotEnv(envPath, loaded); err != nil {
		if !os.IsNotExist(err) {
			return err
		}
	}

	mu.Lock()
	values = loaded
	mu.Unlock()

	return nil
}

func mergeJSONConfig(path string, out map[string]string) error {
	file, err := os.Open(path)
	if err != nil {
		return err
	}
	defer file.Close()

	var raw map[string]interface{}
	if err := json.NewDecoder(file).Decode(&raw); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}

	for key, val := range raw {
		var s string
		switch v := val.(type) {
		case string:
			s = v
		case float64, bool:
			s = fmt.Sprint(v)
		default:
			continue
		}

		k := strings.ToUpper(strings.TrimSpace(key))
		if k == "" {
			continue
		}
		out[k] = strings.TrimSpace(s)
	}

	return nil
}

func mergeDotEnv(path string, out map[string]string) error {
	file, err := os.Open(path)
	if err != nil {
		return err
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		key, value, ok := strings.Cut(line, "=")
		key = strings.ToUpper(strings.TrimSpace(key))
		if !ok || key == "" {
			continue
		}
		out[key] = strings.Trim(strings.TrimSpace(value), `"'`)
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}

	return nil
}

// get prefers the process environment over file values.
func get(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v)
	}

	mu.RLock()
	defer mu.RUnlock()

	if value := strings.TrimSpace(values[key]); value != "" {
		return value
	}

	return fallback
}

// Get reads any config key by name with an optional fallback.
func Get(key, fallback string) string {
	_ = Load()
	return get(key, fallback)
}

// Set overrides a key for the lifetime of the process. Intended for tests and
// CLI flags.
func Set(key, value string) {
	_ = Load()
	mu.Lock()
	values[strings.ToUpper(key)] = value
	mu.Unlock()
}

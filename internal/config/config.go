// Пакет config — загрузка и валидация конфигурации Odie
// из переменных окружения.
package config

import (
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

// Версия приложения, задаётся при сборке через -ldflags.
var Version = "dev"

// Бэкенды хранилища файлов документов.
const (
	StorageBackendDisk = "disk"
	StorageBackendGCS  = "gcs"
)

// Config содержит все параметры конфигурации Odie.
type Config struct {
	// --- Сервер ---

	// Порт HTTP-сервера
	Port int
	// Уровень логирования (debug, info, warn, error)
	LogLevel slog.Level
	// Формат логов (json, text)
	LogFormat string
	// Таймаут graceful shutdown HTTP-сервера
	ShutdownTimeout time.Duration

	// --- PostgreSQL ---

	DBHost     string
	DBPort     int
	DBName     string
	DBUser     string
	DBPassword string
	// Режим SSL: disable, require, verify-ca, verify-full
	DBSSLMode string

	// --- Хранилище документов ---

	// Бэкенд хранилища: disk или gcs
	StorageBackend string
	// Корневая директория content-addressed хранилища (для disk)
	DocumentDir string
	// Bucket GCS (для gcs)
	GCSBucket string
	// Префикс объектов в bucket (для gcs), играет роль storage root
	GCSPrefix string
	// Максимальный размер загружаемого файла в байтах
	MaxUploadSize int64
	// Допустимые расширения файлов при подаче документа (с точкой, ".pdf")
	AllowedExtensions []string

	// --- Касса и печать ---

	// Допустимые идентификаторы касс
	CashBoxes []string
	// Допустимые имена принтеров
	Printers []string
	// Стоимость залога в центах
	DepositPrice int
	// Стоимость одной страницы в центах
	PricePerPage int
	// Соответствие username → офис для /api/user_info
	Offices map[string]string

	// --- Keycloak / JWT ---

	KeycloakURL   string
	KeycloakRealm string
	// Issuer JWT (авто-вычисляется из KeycloakURL, если не задан)
	JWTIssuer string
	// URL JWKS endpoint (авто-вычисляется из KeycloakURL, если не задан)
	JWTJWKSURL string
	// Группы Keycloak, члены которых считаются операторами кассы.
	// Пустой список — любой аутентифицированный пользователь.
	OperatorGroups []string

	// --- Кэш документов ---

	DocumentCacheSize int
	DocumentCacheTTL  time.Duration

	// --- topologymetrics ---

	DephealthGroup         string
	DephealthCheckInterval time.Duration
}

// Load загружает конфигурацию из переменных окружения, валидирует
// обязательные поля и возвращает Config или ошибку.
//
//nolint:cyclop,funlen // линейная последовательность чтения переменных
func Load() (*Config, error) {
	cfg := &Config{}
	var err error

	// --- Сервер ---

	cfg.Port, err = getEnvInt("ODIE_PORT", 8000)
	if err != nil {
		return nil, fmt.Errorf("ODIE_PORT: %w", err)
	}
	if cfg.Port < 1 || cfg.Port > 65535 {
		return nil, fmt.Errorf("ODIE_PORT: значение %d вне допустимого диапазона 1-65535", cfg.Port)
	}

	cfg.LogLevel, err = parseLogLevel(getEnvDefault("ODIE_LOG_LEVEL", "info"))
	if err != nil {
		return nil, fmt.Errorf("ODIE_LOG_LEVEL: %w", err)
	}

	cfg.LogFormat = getEnvDefault("ODIE_LOG_FORMAT", "json")
	if cfg.LogFormat != "json" && cfg.LogFormat != "text" {
		return nil, fmt.Errorf("ODIE_LOG_FORMAT: недопустимое значение %q, допустимые: json, text", cfg.LogFormat)
	}

	cfg.ShutdownTimeout, err = getEnvDuration("ODIE_SHUTDOWN_TIMEOUT", 5*time.Second)
	if err != nil {
		return nil, fmt.Errorf("ODIE_SHUTDOWN_TIMEOUT: %w", err)
	}

	// --- PostgreSQL ---

	if cfg.DBHost, err = getEnvRequired("ODIE_DB_HOST"); err != nil {
		return nil, err
	}
	cfg.DBPort, err = getEnvInt("ODIE_DB_PORT", 5432)
	if err != nil {
		return nil, fmt.Errorf("ODIE_DB_PORT: %w", err)
	}
	if cfg.DBName, err = getEnvRequired("ODIE_DB_NAME"); err != nil {
		return nil, err
	}
	if cfg.DBUser, err = getEnvRequired("ODIE_DB_USER"); err != nil {
		return nil, err
	}
	if cfg.DBPassword, err = getEnvRequired("ODIE_DB_PASSWORD"); err != nil {
		return nil, err
	}

	cfg.DBSSLMode = getEnvDefault("ODIE_DB_SSL_MODE", "disable")
	validSSLModes := map[string]bool{
		"disable": true, "require": true, "verify-ca": true, "verify-full": true,
	}
	if !validSSLModes[cfg.DBSSLMode] {
		return nil, fmt.Errorf("ODIE_DB_SSL_MODE: недопустимое значение %q, допустимые: disable, require, verify-ca, verify-full", cfg.DBSSLMode)
	}

	// --- Хранилище документов ---

	cfg.StorageBackend = getEnvDefault("ODIE_STORAGE_BACKEND", StorageBackendDisk)
	switch cfg.StorageBackend {
	case StorageBackendDisk:
		if cfg.DocumentDir, err = getEnvRequired("ODIE_DOCUMENT_DIR"); err != nil {
			return nil, err
		}
	case StorageBackendGCS:
		if cfg.GCSBucket, err = getEnvRequired("ODIE_GCS_BUCKET"); err != nil {
			return nil, err
		}
		cfg.GCSPrefix = strings.Trim(getEnvDefault("ODIE_GCS_PREFIX", "documents"), "/")
	default:
		return nil, fmt.Errorf("ODIE_STORAGE_BACKEND: недопустимое значение %q, допустимые: disk, gcs", cfg.StorageBackend)
	}

	maxUpload, err := getEnvInt("ODIE_MAX_UPLOAD_SIZE", 64<<20)
	if err != nil {
		return nil, fmt.Errorf("ODIE_MAX_UPLOAD_SIZE: %w", err)
	}
	if maxUpload <= 0 {
		return nil, fmt.Errorf("ODIE_MAX_UPLOAD_SIZE: значение должно быть положительным, получено %d", maxUpload)
	}
	cfg.MaxUploadSize = int64(maxUpload)

	cfg.AllowedExtensions = normalizeExtensions(parseCSV(getEnvDefault("ODIE_ALLOWED_EXTENSIONS", ".pdf")))
	if len(cfg.AllowedExtensions) == 0 {
		return nil, fmt.Errorf("ODIE_ALLOWED_EXTENSIONS: список расширений пуст")
	}

	// --- Касса и печать ---

	cashBoxes, err := getEnvRequired("ODIE_CASH_BOXES")
	if err != nil {
		return nil, err
	}
	cfg.CashBoxes = parseCSV(cashBoxes)

	printers, err := getEnvRequired("ODIE_PRINTERS")
	if err != nil {
		return nil, err
	}
	cfg.Printers = parseCSV(printers)

	cfg.DepositPrice, err = getEnvInt("ODIE_DEPOSIT_PRICE", 500)
	if err != nil {
		return nil, fmt.Errorf("ODIE_DEPOSIT_PRICE: %w", err)
	}
	if cfg.DepositPrice < 0 {
		return nil, fmt.Errorf("ODIE_DEPOSIT_PRICE: значение не может быть отрицательным, получено %d", cfg.DepositPrice)
	}

	cfg.PricePerPage, err = getEnvInt("ODIE_PRICE_PER_PAGE", 3)
	if err != nil {
		return nil, fmt.Errorf("ODIE_PRICE_PER_PAGE: %w", err)
	}
	if cfg.PricePerPage < 0 {
		return nil, fmt.Errorf("ODIE_PRICE_PER_PAGE: значение не может быть отрицательным, получено %d", cfg.PricePerPage)
	}

	cfg.Offices, err = parseOffices(getEnvDefault("ODIE_OFFICES", ""))
	if err != nil {
		return nil, fmt.Errorf("ODIE_OFFICES: %w", err)
	}

	// --- Keycloak / JWT ---

	cfg.KeycloakURL, err = getEnvRequired("ODIE_KEYCLOAK_URL")
	if err != nil {
		return nil, err
	}
	cfg.KeycloakURL = strings.TrimRight(cfg.KeycloakURL, "/")
	cfg.KeycloakRealm = getEnvDefault("ODIE_KEYCLOAK_REALM", "odie")

	cfg.JWTIssuer = getEnvDefault("ODIE_JWT_ISSUER",
		fmt.Sprintf("%s/realms/%s", cfg.KeycloakURL, cfg.KeycloakRealm))
	cfg.JWTJWKSURL = getEnvDefault("ODIE_JWT_JWKS_URL",
		fmt.Sprintf("%s/realms/%s/protocol/openid-connect/certs", cfg.KeycloakURL, cfg.KeycloakRealm))

	cfg.OperatorGroups = parseCSV(getEnvDefault("ODIE_OPERATOR_GROUPS", ""))

	// --- Кэш документов ---

	cfg.DocumentCacheSize, err = getEnvInt("ODIE_DOCUMENT_CACHE_SIZE", 1000)
	if err != nil {
		return nil, fmt.Errorf("ODIE_DOCUMENT_CACHE_SIZE: %w", err)
	}
	if cfg.DocumentCacheSize < 1 {
		return nil, fmt.Errorf("ODIE_DOCUMENT_CACHE_SIZE: значение должно быть положительным, получено %d", cfg.DocumentCacheSize)
	}
	cfg.DocumentCacheTTL, err = getEnvDuration("ODIE_DOCUMENT_CACHE_TTL", 10*time.Minute)
	if err != nil {
		return nil, fmt.Errorf("ODIE_DOCUMENT_CACHE_TTL: %w", err)
	}

	// --- topologymetrics ---

	cfg.DephealthGroup = getEnvDefault("ODIE_DEPHEALTH_GROUP", "odie")
	cfg.DephealthCheckInterval, err = getEnvDuration("ODIE_DEPHEALTH_CHECK_INTERVAL", 15*time.Second)
	if err != nil {
		return nil, fmt.Errorf("ODIE_DEPHEALTH_CHECK_INTERVAL: %w", err)
	}

	return cfg, nil
}

// DatabaseDSN возвращает строку подключения к PostgreSQL.
func (c *Config) DatabaseDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d dbname=%s user=%s password=%s sslmode=%s",
		c.DBHost, c.DBPort, c.DBName, c.DBUser, c.DBPassword, c.DBSSLMode,
	)
}

// DatabaseURL возвращает URL PostgreSQL без пароля.
// Используется для лейблов topologymetrics, не для подключения.
func (c *Config) DatabaseURL() string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.User(c.DBUser),
		Host:   fmt.Sprintf("%s:%d", c.DBHost, c.DBPort),
		Path:   "/" + c.DBName,
	}
	return u.String()
}

// IsCashBox проверяет, входит ли касса в список допустимых.
func (c *Config) IsCashBox(name string) bool {
	return contains(c.CashBoxes, name)
}

// IsPrinter проверяет, входит ли принтер в список допустимых.
func (c *Config) IsPrinter(name string) bool {
	return contains(c.Printers, name)
}

// FrontendConfig — публичная часть конфигурации, отдаётся на /api/config.
type FrontendConfig struct {
	CashBoxes         []string `json:"cash_boxes"`
	Printers          []string `json:"printers"`
	DepositPrice      int      `json:"deposit_price"`
	PricePerPage      int      `json:"price_per_page"`
	AllowedExtensions []string `json:"allowed_extensions"`
}

// Frontend возвращает публичную часть конфигурации.
func (c *Config) Frontend() FrontendConfig {
	return FrontendConfig{
		CashBoxes:         c.CashBoxes,
		Printers:          c.Printers,
		DepositPrice:      c.DepositPrice,
		PricePerPage:      c.PricePerPage,
		AllowedExtensions: c.AllowedExtensions,
	}
}

// SetupLogger настраивает глобальный slog-логгер на основе конфигурации.
func SetupLogger(cfg *Config) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}

	var handler slog.Handler
	if cfg.LogFormat == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}

// --- Вспомогательные функции ---

// getEnvRequired возвращает значение переменной окружения или ошибку, если она не задана.
func getEnvRequired(key string) (string, error) {
	val := os.Getenv(key)
	if val == "" {
		return "", fmt.Errorf("%s: обязательная переменная окружения не задана", key)
	}
	return val, nil
}

// getEnvDefault возвращает значение переменной окружения или значение по умолчанию.
func getEnvDefault(key, defaultVal string) string {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	return val
}

// getEnvInt возвращает целочисленное значение переменной окружения или значение по умолчанию.
func getEnvInt(key string, defaultVal int) (int, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return 0, fmt.Errorf("некорректное целое число: %q", val)
	}
	return n, nil
}

// getEnvDuration возвращает time.Duration из переменной окружения или значение по умолчанию.
func getEnvDuration(key string, defaultVal time.Duration) (time.Duration, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		return 0, fmt.Errorf("некорректная длительность: %q (используйте формат Go: 30s, 1h, 15m)", val)
	}
	return d, nil
}

// parseLogLevel преобразует строку уровня логирования в slog.Level.
func parseLogLevel(level string) (slog.Level, error) {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("недопустимый уровень %q, допустимые: debug, info, warn, error", level)
	}
}

// parseCSV разбирает строку, разделённую запятыми, на срез строк.
// Пробелы вокруг элементов убираются, пустые элементы игнорируются.
func parseCSV(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			result = append(result, p)
		}
	}
	return result
}

// normalizeExtensions приводит расширения к виду ".ext" в нижнем регистре.
func normalizeExtensions(exts []string) []string {
	result := make([]string, 0, len(exts))
	for _, e := range exts {
		e = strings.ToLower(e)
		if !strings.HasPrefix(e, ".") {
			e = "." + e
		}
		result = append(result, e)
	}
	return result
}

// parseOffices разбирает строку вида "user1:office1,user2:office2".
func parseOffices(s string) (map[string]string, error) {
	result := make(map[string]string)
	for _, pair := range parseCSV(s) {
		user, office, ok := strings.Cut(pair, ":")
		user = strings.TrimSpace(user)
		office = strings.TrimSpace(office)
		if !ok || user == "" || office == "" {
			return nil, fmt.Errorf("некорректная пара %q, ожидается user:office", pair)
		}
		result[user] = office
	}
	return result, nil
}

func contains(items []string, s string) bool {
	for _, it := range items {
		if it == s {
			return true
		}
	}
	return false
}

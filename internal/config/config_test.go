package config

import (
	"log/slog"
	"os"
	"testing"
	"time"
)

// setEnvs устанавливает переменные окружения на время теста.
func setEnvs(t *testing.T, envs map[string]string) {
	t.Helper()
	for k, v := range envs {
		t.Setenv(k, v)
	}
}

// minimalEnvs возвращает минимальный набор обязательных переменных.
func minimalEnvs() map[string]string {
	return map[string]string{
		"ODIE_DB_HOST":      "localhost",
		"ODIE_DB_NAME":      "odie",
		"ODIE_DB_USER":      "odie",
		"ODIE_DB_PASSWORD":  "secret",
		"ODIE_DOCUMENT_DIR": "/var/lib/odie/documents",
		"ODIE_CASH_BOXES":   "Sitzung, Buero",
		"ODIE_PRINTERS":     "external,internal",
		"ODIE_KEYCLOAK_URL": "https://keycloak.example.lan",
	}
}

// resetEnvs очищает все переменные minimalEnvs перед установкой нового набора.
func resetEnvs(t *testing.T, envs map[string]string) {
	t.Helper()
	for k := range minimalEnvs() {
		os.Unsetenv(k)
	}
	setEnvs(t, envs)
}

func TestLoad_MinimalConfig(t *testing.T) {
	setEnvs(t, minimalEnvs())

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() вернул ошибку: %v", err)
	}

	if cfg.Port != 8000 {
		t.Errorf("Port = %d, ожидается 8000", cfg.Port)
	}
	if cfg.LogLevel != slog.LevelInfo {
		t.Errorf("LogLevel = %v, ожидается Info", cfg.LogLevel)
	}
	if cfg.LogFormat != "json" {
		t.Errorf("LogFormat = %q, ожидается json", cfg.LogFormat)
	}
	if cfg.DBPort != 5432 {
		t.Errorf("DBPort = %d, ожидается 5432", cfg.DBPort)
	}
	if cfg.StorageBackend != StorageBackendDisk {
		t.Errorf("StorageBackend = %q, ожидается disk", cfg.StorageBackend)
	}
	if cfg.MaxUploadSize != 64<<20 {
		t.Errorf("MaxUploadSize = %d, ожидается %d", cfg.MaxUploadSize, 64<<20)
	}
	if len(cfg.AllowedExtensions) != 1 || cfg.AllowedExtensions[0] != ".pdf" {
		t.Errorf("AllowedExtensions = %v, ожидается [.pdf]", cfg.AllowedExtensions)
	}
	if len(cfg.CashBoxes) != 2 || cfg.CashBoxes[0] != "Sitzung" || cfg.CashBoxes[1] != "Buero" {
		t.Errorf("CashBoxes = %v, ожидается [Sitzung Buero]", cfg.CashBoxes)
	}
	if cfg.DepositPrice != 500 {
		t.Errorf("DepositPrice = %d, ожидается 500", cfg.DepositPrice)
	}
	if cfg.PricePerPage != 3 {
		t.Errorf("PricePerPage = %d, ожидается 3", cfg.PricePerPage)
	}
	if cfg.KeycloakRealm != "odie" {
		t.Errorf("KeycloakRealm = %q, ожидается odie", cfg.KeycloakRealm)
	}
	if len(cfg.OperatorGroups) != 0 {
		t.Errorf("OperatorGroups = %v, ожидается пустой список", cfg.OperatorGroups)
	}
	if cfg.DocumentCacheSize != 1000 {
		t.Errorf("DocumentCacheSize = %d, ожидается 1000", cfg.DocumentCacheSize)
	}
	if cfg.DocumentCacheTTL != 10*time.Minute {
		t.Errorf("DocumentCacheTTL = %v, ожидается 10m", cfg.DocumentCacheTTL)
	}
	if cfg.DephealthCheckInterval != 15*time.Second {
		t.Errorf("DephealthCheckInterval = %v, ожидается 15s", cfg.DephealthCheckInterval)
	}
	if cfg.ShutdownTimeout != 5*time.Second {
		t.Errorf("ShutdownTimeout = %v, ожидается 5s", cfg.ShutdownTimeout)
	}
}

func TestLoad_JWTAutoDerive(t *testing.T) {
	setEnvs(t, minimalEnvs())

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() вернул ошибку: %v", err)
	}

	expectedIssuer := "https://keycloak.example.lan/realms/odie"
	if cfg.JWTIssuer != expectedIssuer {
		t.Errorf("JWTIssuer = %q, ожидается %q", cfg.JWTIssuer, expectedIssuer)
	}

	expectedJWKS := "https://keycloak.example.lan/realms/odie/protocol/openid-connect/certs"
	if cfg.JWTJWKSURL != expectedJWKS {
		t.Errorf("JWTJWKSURL = %q, ожидается %q", cfg.JWTJWKSURL, expectedJWKS)
	}
}

func TestLoad_CustomValues(t *testing.T) {
	envs := minimalEnvs()
	envs["ODIE_PORT"] = "9000"
	envs["ODIE_LOG_LEVEL"] = "debug"
	envs["ODIE_LOG_FORMAT"] = "text"
	envs["ODIE_ALLOWED_EXTENSIONS"] = "pdf, .PNG"
	envs["ODIE_DEPOSIT_PRICE"] = "1000"
	envs["ODIE_PRICE_PER_PAGE"] = "5"
	envs["ODIE_OFFICES"] = "alice:FSI, bob:FSP"
	envs["ODIE_OPERATOR_GROUPS"] = "kasse, admins"
	envs["ODIE_DOCUMENT_CACHE_TTL"] = "1m"
	resetEnvs(t, envs)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() вернул ошибку: %v", err)
	}

	if cfg.Port != 9000 {
		t.Errorf("Port = %d, ожидается 9000", cfg.Port)
	}
	if cfg.LogLevel != slog.LevelDebug {
		t.Errorf("LogLevel = %v, ожидается Debug", cfg.LogLevel)
	}
	if len(cfg.AllowedExtensions) != 2 || cfg.AllowedExtensions[0] != ".pdf" || cfg.AllowedExtensions[1] != ".png" {
		t.Errorf("AllowedExtensions = %v, ожидается [.pdf .png]", cfg.AllowedExtensions)
	}
	if cfg.DepositPrice != 1000 {
		t.Errorf("DepositPrice = %d, ожидается 1000", cfg.DepositPrice)
	}
	if cfg.PricePerPage != 5 {
		t.Errorf("PricePerPage = %d, ожидается 5", cfg.PricePerPage)
	}
	if cfg.Offices["alice"] != "FSI" || cfg.Offices["bob"] != "FSP" {
		t.Errorf("Offices = %v, ожидается alice:FSI bob:FSP", cfg.Offices)
	}
	if len(cfg.OperatorGroups) != 2 || cfg.OperatorGroups[1] != "admins" {
		t.Errorf("OperatorGroups = %v, ожидается [kasse admins]", cfg.OperatorGroups)
	}
	if cfg.DocumentCacheTTL != time.Minute {
		t.Errorf("DocumentCacheTTL = %v, ожидается 1m", cfg.DocumentCacheTTL)
	}
}

func TestLoad_GCSBackend(t *testing.T) {
	envs := minimalEnvs()
	delete(envs, "ODIE_DOCUMENT_DIR")
	envs["ODIE_STORAGE_BACKEND"] = "gcs"
	envs["ODIE_GCS_BUCKET"] = "odie-documents"
	envs["ODIE_GCS_PREFIX"] = "/exams/"
	resetEnvs(t, envs)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() вернул ошибку: %v", err)
	}
	if cfg.GCSBucket != "odie-documents" {
		t.Errorf("GCSBucket = %q, ожидается odie-documents", cfg.GCSBucket)
	}
	if cfg.GCSPrefix != "exams" {
		t.Errorf("GCSPrefix = %q, ожидается exams", cfg.GCSPrefix)
	}
}

func TestLoad_MissingRequired(t *testing.T) {
	requiredVars := []string{
		"ODIE_DB_HOST", "ODIE_DB_NAME", "ODIE_DB_USER", "ODIE_DB_PASSWORD",
		"ODIE_DOCUMENT_DIR", "ODIE_CASH_BOXES", "ODIE_PRINTERS", "ODIE_KEYCLOAK_URL",
	}

	for _, missing := range requiredVars {
		t.Run(missing, func(t *testing.T) {
			envs := minimalEnvs()
			delete(envs, missing)
			resetEnvs(t, envs)

			_, err := Load()
			if err == nil {
				t.Errorf("Load() не вернул ошибку при отсутствии %s", missing)
			}
		})
	}
}

func TestLoad_InvalidValues(t *testing.T) {
	tests := []struct {
		key   string
		value string
	}{
		{"ODIE_PORT", "0"},
		{"ODIE_PORT", "abc"},
		{"ODIE_LOG_LEVEL", "verbose"},
		{"ODIE_LOG_FORMAT", "xml"},
		{"ODIE_DB_SSL_MODE", "prefer"},
		{"ODIE_STORAGE_BACKEND", "s3"},
		{"ODIE_MAX_UPLOAD_SIZE", "-1"},
		{"ODIE_DEPOSIT_PRICE", "-5"},
		{"ODIE_PRICE_PER_PAGE", "x"},
		{"ODIE_OFFICES", "alice"},
		{"ODIE_DOCUMENT_CACHE_SIZE", "0"},
		{"ODIE_DOCUMENT_CACHE_TTL", "abc"},
		{"ODIE_SHUTDOWN_TIMEOUT", "10"},
	}

	for _, tt := range tests {
		t.Run(tt.key+"="+tt.value, func(t *testing.T) {
			envs := minimalEnvs()
			envs[tt.key] = tt.value
			resetEnvs(t, envs)

			_, err := Load()
			if err == nil {
				t.Errorf("Load() не вернул ошибку при %s=%q", tt.key, tt.value)
			}
		})
	}
}

func TestLoad_KeycloakURLTrailingSlash(t *testing.T) {
	envs := minimalEnvs()
	envs["ODIE_KEYCLOAK_URL"] = "https://keycloak.example.lan/"
	resetEnvs(t, envs)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() вернул ошибку: %v", err)
	}
	if cfg.KeycloakURL != "https://keycloak.example.lan" {
		t.Errorf("KeycloakURL = %q, ожидается без trailing slash", cfg.KeycloakURL)
	}
}

func TestDatabaseDSN(t *testing.T) {
	cfg := &Config{
		DBHost:     "db.example.com",
		DBPort:     5432,
		DBName:     "odie",
		DBUser:     "user",
		DBPassword: "pass",
		DBSSLMode:  "disable",
	}
	expected := "host=db.example.com port=5432 dbname=odie user=user password=pass sslmode=disable"
	if dsn := cfg.DatabaseDSN(); dsn != expected {
		t.Errorf("DatabaseDSN() = %q, ожидается %q", dsn, expected)
	}
	if u := cfg.DatabaseURL(); u != "postgres://user@db.example.com:5432/odie" {
		t.Errorf("DatabaseURL() = %q, пароль не должен попадать в URL", u)
	}
}

func TestAllowLists(t *testing.T) {
	cfg := &Config{
		CashBoxes: []string{"Sitzung", "Buero"},
		Printers:  []string{"external"},
	}
	if !cfg.IsCashBox("Buero") || cfg.IsCashBox("Keller") {
		t.Error("IsCashBox() работает некорректно")
	}
	if !cfg.IsPrinter("external") || cfg.IsPrinter("") {
		t.Error("IsPrinter() работает некорректно")
	}
}

func TestSetupLogger(t *testing.T) {
	for _, format := range []string{"json", "text"} {
		t.Run(format, func(t *testing.T) {
			cfg := &Config{
				LogLevel:  slog.LevelInfo,
				LogFormat: format,
			}
			if logger := SetupLogger(cfg); logger == nil {
				t.Error("SetupLogger() вернул nil")
			}
		})
	}
}

func TestParseCSV(t *testing.T) {
	tests := []struct {
		input    string
		expected []string
	}{
		{"", nil},
		{"Sitzung", []string{"Sitzung"}},
		{"Sitzung, Buero", []string{"Sitzung", "Buero"}},
		{"Sitzung,,Buero,", []string{"Sitzung", "Buero"}},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			result := parseCSV(tt.input)
			if len(result) != len(tt.expected) {
				t.Fatalf("parseCSV(%q) = %v (len %d), ожидается %v (len %d)",
					tt.input, result, len(result), tt.expected, len(tt.expected))
			}
			for i, v := range result {
				if v != tt.expected[i] {
					t.Errorf("parseCSV(%q)[%d] = %q, ожидается %q", tt.input, i, v, tt.expected[i])
				}
			}
		})
	}
}

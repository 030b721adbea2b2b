package config

import (
	"encoding/json"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/joho/godotenv"
)

type Config struct {
	SalesDBPath   string  `json:"salesDbPath"`
	AuthDBPath    string  `json:"authDbPath"`
	OutputDir     string  `json:"outputDir"`
	Port          string  `json:"port"`
	CurrencyRate  float64 `json:"currencyRate"`
	BaseCurrency  string  `json:"baseCurrency"`
	LocalCurrency string  `json:"localCurrency"`
	TopN          int     `json:"topN"`
	SessionHours  int     `json:"sessionHours"`
	SessionSecret string  `json:"-"`
	ChromePath    string  `json:"chromePath"`
	Locale        string  `json:"locale"`
}

const (
	DefaultSalesDBPath   = "./data/vente.db"
	DefaultAuthDBPath    = "./data/users.db"
	DefaultOutputDir     = "./output"
	DefaultPort          = "8080"
	DefaultCurrencyRate  = 655.96
	DefaultBaseCurrency  = "EUR"
	DefaultLocalCurrency = "FCFA"
	DefaultTopN          = 5
	DefaultSessionHours  = 8
	DefaultLocale        = "fr"
)

var (
	cfg Config
	mu  sync.RWMutex
)

var configFilePath = "./salesboard_config.json"

func init() {
	// .env is optional; real environment variables win.
	godotenv.Load()
}

// SetConfigPath points the package at another config file. Used by the CLI
// --config flag and by tests.
func SetConfigPath(path string) {
	mu.Lock()
	defer mu.Unlock()
	configFilePath = path
}

// LoadConfig reads the config file, falls back to defaults when it does not
// exist, and applies environment overrides on top.
func LoadConfig() (Config, error) {
	mu.Lock()
	defer mu.Unlock()

	loaded := Defaults()
	file, err := os.ReadFile(configFilePath)
	if err != nil && !os.IsNotExist(err) {
		return Config{}, err
	}
	if err == nil {
		if err := json.Unmarshal(file, &loaded); err != nil {
			return Config{}, err
		}
	}
	applyEnv(&loaded)
	fillDefaults(&loaded)
	cfg = loaded
	return cfg, nil
}

func SaveConfig(newCfg Config) error {
	mu.Lock()
	defer mu.Unlock()

	// The secret only ever comes from the environment.
	newCfg.SessionSecret = cfg.SessionSecret
	fillDefaults(&newCfg)

	file, err := json.MarshalIndent(newCfg, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(configFilePath, file, 0644); err != nil {
		return err
	}
	cfg = newCfg
	return nil
}

func GetConfig() Config {
	mu.RLock()
	defer mu.RUnlock()
	return cfg
}

func Defaults() Config {
	return Config{
		SalesDBPath:   DefaultSalesDBPath,
		AuthDBPath:    DefaultAuthDBPath,
		OutputDir:     DefaultOutputDir,
		Port:          DefaultPort,
		CurrencyRate:  DefaultCurrencyRate,
		BaseCurrency:  DefaultBaseCurrency,
		LocalCurrency: DefaultLocalCurrency,
		TopN:          DefaultTopN,
		SessionHours:  DefaultSessionHours,
		Locale:        DefaultLocale,
	}
}

func fillDefaults(c *Config) {
	d := Defaults()
	if c.SalesDBPath == "" {
		c.SalesDBPath = d.SalesDBPath
	}
	if c.AuthDBPath == "" {
		c.AuthDBPath = d.AuthDBPath
	}
	if c.OutputDir == "" {
		c.OutputDir = d.OutputDir
	}
	if c.Port == "" {
		c.Port = d.Port
	}
	if c.CurrencyRate <= 0 {
		c.CurrencyRate = d.CurrencyRate
	}
	if c.BaseCurrency == "" {
		c.BaseCurrency = d.BaseCurrency
	}
	if c.LocalCurrency == "" {
		c.LocalCurrency = d.LocalCurrency
	}
	if c.TopN <= 0 {
		c.TopN = d.TopN
	}
	if c.SessionHours <= 0 {
		c.SessionHours = d.SessionHours
	}
	if c.Locale == "" {
		c.Locale = d.Locale
	}
}

func applyEnv(c *Config) {
	if v := getEnv("SALESBOARD_SALES_DB"); v != "" {
		c.SalesDBPath = v
	}
	if v := getEnv("SALESBOARD_AUTH_DB"); v != "" {
		c.AuthDBPath = v
	}
	if v := getEnv("SALESBOARD_OUTPUT_DIR"); v != "" {
		c.OutputDir = v
	}
	if v := getEnv("SALESBOARD_PORT"); v != "" {
		c.Port = v
	}
	if v := getEnv("SALESBOARD_CHROME_PATH"); v != "" {
		c.ChromePath = v
	}
	if v := getEnv("SALESBOARD_LOCALE"); v != "" {
		c.Locale = v
	}
	if v, err := strconv.ParseFloat(getEnv("SALESBOARD_CURRENCY_RATE"), 64); err == nil {
		c.CurrencyRate = v
	}
	if v, err := strconv.Atoi(getEnv("SALESBOARD_TOP_N")); err == nil {
		c.TopN = v
	}
	if v, err := strconv.Atoi(getEnv("SALESBOARD_SESSION_HOURS")); err == nil {
		c.SessionHours = v
	}
	c.SessionSecret = getEnv("SALESBOARD_SESSION_SECRET")
}

func getEnv(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

package config

import (
	"encoding/json"
	"flag"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	Port        string `json:"port"`
	DSLDir      string `json:"dslDir"`
	DBURL       string `json:"dbUrl"`
	DBSchema    string `json:"dbSchema"` // схема Postgres для таблиц сущностей и связей
	AutoMigrate bool   `json:"autoMigrate"`
	EnvFile     string `json:"envFile"`
}

func def() Config {
	return Config{
		Port:        "8080",
		DSLDir:      "dsl",
		DBURL:       "",
		DBSchema:    "dynamic",
		AutoMigrate: false,
		EnvFile:     ".env",
	}
}

func loadJSON(path string) (Config, error) {
	c := def()
	b, err := os.ReadFile(path)
	if err != nil {
		return c, err
	}
	if err := json.Unmarshal(b, &c); err != nil {
		return c, err
	}
	return c, nil
}

func getenv(k, fallback string) string {
	if v, ok := os.LookupEnv(k); ok && strings.TrimSpace(v) != "" {
		return v
	}
	return fallback
}

func parseBool(v string) (bool, bool) {
	switch strings.TrimSpace(strings.ToLower(v)) {
	case "1", "true", "yes":
		return true, true
	case "0", "false", "no":
		return false, true
	}
	return false, false
}

func getenvBool(k string, fallback bool) bool {
	if v, ok := os.LookupEnv(k); ok {
		if b, ok := parseBool(v); ok {
			return b
		}
	}
	return fallback
}

// LoadWithPath читает JSON по указанному пути, потом .env, ENV и флаги командной строки.
func LoadWithPath(jsonPath string) Config {
	cfg, err := Load(jsonPath, os.Args[1:])
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	return cfg
}

// Load: то же, что LoadWithPath, но с явными аргументами.
func Load(jsonPath string, args []string) (Config, error) {
	cfg := def()

	// JSON (если файл существует)
	if st, err := os.Stat(jsonPath); err == nil && !st.IsDir() {
		c2, err := loadJSON(jsonPath)
		if err != nil {
			return cfg, err
		}
		cfg = c2
	}

	// .env не перетирает уже выставленные переменные окружения
	if err := godotenv.Load(cfg.EnvFile); err != nil && !os.IsNotExist(err) {
		log.Printf("config: cannot read %s: %v", cfg.EnvFile, err)
	}

	// ENV overrides
	cfg.Port = getenv("JUNCTION_PORT", cfg.Port)
	cfg.DSLDir = getenv("JUNCTION_DSL_DIR", cfg.DSLDir)
	cfg.DBURL = getenv("JUNCTION_DB_URL", cfg.DBURL)
	cfg.DBSchema = getenv("JUNCTION_DB_SCHEMA", cfg.DBSchema)
	cfg.AutoMigrate = getenvBool("JUNCTION_AUTO_MIGRATE", cfg.AutoMigrate)

	// Flags overrides
	fs := flag.NewFlagSet("junction", flag.ContinueOnError)
	configPath := fs.String("config", jsonPath, "Path to config JSON")
	port := fs.String("port", cfg.Port, "HTTP port")
	dslDir := fs.String("dsl", cfg.DSLDir, "Path to DSL directory (*.dsl, plugin *.yaml)")
	db := fs.String("db", cfg.DBURL, "Postgres URL (empty = no database)")
	schema := fs.String("db-schema", cfg.DBSchema, "Postgres schema for generated tables")
	auto := fs.String("auto-migrate", strconv.FormatBool(cfg.AutoMigrate), "Apply generated DDL on start (true/false)")

	if err := fs.Parse(args); err != nil {
		return cfg, err
	}

	// Если через флаг передали другой конфиг: перечитаем
	if *configPath != jsonPath {
		return Load(*configPath, args)
	}

	cfg.Port = strings.TrimSpace(*port)
	cfg.DSLDir = strings.TrimSpace(*dslDir)
	cfg.DBURL = strings.TrimSpace(*db)
	cfg.DBSchema = strings.TrimSpace(*schema)
	if b, ok := parseBool(*auto); ok {
		cfg.AutoMigrate = b
	}
	return cfg, nil
}

// Package config содержит логику чтения конфигурации эмитента и банкомата.
package config

import (
	"flag"
	"fmt"

	"github.com/caarlos0/env/v11"
)

const (
	defaultRunAddress = "localhost:8080"
	defaultStoreFile  = "transactions.json"
	defaultPayeesFile = "payees.json"
	defaultKeyFile    = "secret.key"
	defaultScanFile   = "nfc_payload.txt"
)

// Config содержит параметры конфигурации эмитента и банкомата.
type Config struct {
	RunAddress    string `env:"RUN_ADDRESS"`
	DatabaseURI   string `env:"DATABASE_URI"`
	StoreFile     string `env:"STORE_FILE"`
	PayeesFile    string `env:"PAYEES_FILE"`
	KeyFile       string `env:"KEY_FILE"`
	ScanFile      string `env:"SCAN_FILE"`
	IssuerAddress string `env:"ISSUER_ADDRESS"`
}

// Parse считывает конфигурацию из флагов командной строки и переменных окружения.
// Переменные окружения имеют приоритет над флагами.
func Parse() (*Config, error) {
	cfg := &Config{}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	fromEnv := *cfg

	flag.StringVar(&cfg.RunAddress, "a", defaultRunAddress, "address and port for HTTP server")
	flag.StringVar(&cfg.DatabaseURI, "d", "", "database URI; JSON files are used when empty")
	flag.StringVar(&cfg.StoreFile, "s", defaultStoreFile, "transactions store file")
	flag.StringVar(&cfg.PayeesFile, "p", defaultPayeesFile, "payees file")
	flag.StringVar(&cfg.KeyFile, "k", defaultKeyFile, "encryption key file")
	flag.StringVar(&cfg.ScanFile, "n", defaultScanFile, "NFC scan payload file")
	flag.StringVar(&cfg.IssuerAddress, "i", "", "issuer API address for remote redemption")

	flag.Parse()

	override(&cfg.RunAddress, fromEnv.RunAddress)
	override(&cfg.DatabaseURI, fromEnv.DatabaseURI)
	override(&cfg.StoreFile, fromEnv.StoreFile)
	override(&cfg.PayeesFile, fromEnv.PayeesFile)
	override(&cfg.KeyFile, fromEnv.KeyFile)
	override(&cfg.ScanFile, fromEnv.ScanFile)
	override(&cfg.IssuerAddress, fromEnv.IssuerAddress)

	if cfg.RunAddress == "" {
		cfg.RunAddress = defaultRunAddress
	}

	return cfg, nil
}

func override(dst *string, envValue string) {
	if envValue != "" {
		*dst = envValue
	}
}

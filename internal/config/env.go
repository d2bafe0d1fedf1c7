package config

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// envFiles lists the dotenv files read at startup, highest precedence first.
func envFiles() []string {
	var paths []string
	if explicit := os.Getenv("MEDREMINDER_ENV_FILE"); explicit != "" {
		paths = append(paths, explicit)
	}
	paths = append(paths, ".env")

	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths,
			filepath.Join(home, ".medreminder", ".env"),
			filepath.Join(home, ".config", "medreminder", ".env"),
		)
	}
	return paths
}

// LoadEnvFiles copies KEY=value pairs from the dotenv files into the process
// environment. Variables already set win, so earlier files shadow later ones.
func LoadEnvFiles() error {
	for _, path := range envFiles() {
		if _, err := os.Stat(path); err != nil {
			continue
		}
		if err := loadEnvFile(path); err != nil {
			return fmt.Errorf("env file %s: %w", path, err)
		}
	}
	return nil
}

func loadEnvFile(path string) error {
	file, err := os.Open(path)
	if err != nil {
		return err
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		key, value, ok := parseEnvLine(scanner.Text())
		if !ok {
			continue
		}
		if _, set := os.LookupEnv(key); !set {
			os.Setenv(key, value)
		}
	}
	return scanner.Err()
}

// parseEnvLine reads one dotenv line. Blank lines, comments and lines
// without '=' are skipped.
func parseEnvLine(line string) (key, value string, ok bool) {
	line = strings.TrimSpace(line)
	if line == "" || strings.HasPrefix(line, "#") {
		return "", "", false
	}
	line = strings.TrimPrefix(line, "export ")

	key, value, ok = strings.Cut(line, "=")
	key = strings.TrimSpace(key)
	if !ok || key == "" {
		return "", "", false
	}
	return key, unquote(strings.TrimSpace(value)), true
}

func unquote(v string) string {
	if len(v) >= 2 {
		if (v[0] == '"' && v[len(v)-1] == '"') || (v[0] == '\'' && v[len(v)-1] == '\'') {
			return v[1 : len(v)-1]
		}
	}
	return v
}

// Secrets are commonly exported under their provider's own names.
var envAliases = map[string][]string{
	"MEDREMINDER_SECURITY_JWT_SECRET":       {"MEDREMINDER_JWT_SECRET", "JWT_SECRET"},
	"MEDREMINDER_NOTIFY_TELEGRAM_BOT_TOKEN": {"TELEGRAM_BOT_TOKEN"},
	"MEDREMINDER_NOTIFY_DISCORD_TOKEN":      {"DISCORD_BOT_TOKEN", "DISCORD_TOKEN"},
	"MEDREMINDER_NOTIFY_WEBHOOK_URL":        {"MEDREMINDER_WEBHOOK_URL"},
}

// resolveEnv returns the first non-empty value of key or one of its aliases.
func resolveEnv(key string) string {
	for _, k := range append([]string{key}, envAliases[key]...) {
		if val := os.Getenv(k); val != "" {
			return val
		}
	}
	return ""
}

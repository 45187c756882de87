package session

import (
	"encoding/json"
	"os"
	"path/filepath"
)

// Default endpoints match a local chat-api and socket server.
const (
	DefaultServerURL = "http://localhost:3001"
	DefaultSocketURL = "ws://localhost:8080/ws"
)

// Env overrides for the endpoints.
const (
	EnvServerURL = "PARLEY_SERVER_URL"
	EnvSocketURL = "PARLEY_SOCKET_URL"
)

// Config holds the client endpoints.
type Config struct {
	ServerURL string `json:"server_url"`
	SocketURL string `json:"socket_url"`
}

func configPath() (string, error) {
	dir, err := configDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

// LoadConfig reads the config file, fills defaults, and applies env
// overrides. A missing file is not an error.
func LoadConfig() (Config, error) {
	path, err := configPath()
	if err != nil {
		return Config{}, err
	}
	config := Config{}
	data, err := os.ReadFile(path)
	if err == nil {
		if err := json.Unmarshal(data, &config); err != nil {
			return Config{}, err
		}
	} else if !os.IsNotExist(err) {
		return Config{}, err
	}
	if config.ServerURL == "" {
		config.ServerURL = DefaultServerURL
	}
	if config.SocketURL == "" {
		config.SocketURL = DefaultSocketURL
	}
	if v := os.Getenv(EnvServerURL); v != "" {
		config.ServerURL = v
	}
	if v := os.Getenv(EnvSocketURL); v != "" {
		config.SocketURL = v
	}
	return config, nil
}

// WriteConfig persists the config file.
func WriteConfig(config Config) error {
	path, err := configPath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(config, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	return os.WriteFile(path, data, 0o644)
}

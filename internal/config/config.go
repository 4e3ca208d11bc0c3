package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Mesh struct {
		Gateway    string `yaml:"gateway"`
		Channel    string `yaml:"channel"`
		ChunkSize  int    `yaml:"chunk_size"`
		ChunkDelay string `yaml:"chunk_delay"`
	} `yaml:"mesh"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
	} `yaml:"redis"`
	Postgres struct {
		URL string `yaml:"url"`
	} `yaml:"postgres"`
	Game struct {
		QuestionsFile   string   `yaml:"questions_file"`
		Admins          []string `yaml:"admins"`
		MaxRounds       int      `yaml:"max_rounds"`
		AnswerWindow    string   `yaml:"answer_window"`
		Break           string   `yaml:"break"`
		JoinDelay       string   `yaml:"join_delay"`
		LeaderboardSize int      `yaml:"leaderboard_size"`
	} `yaml:"game"`
	LLM struct {
		BaseURL string `yaml:"base_url"`
		APIKey  string `yaml:"api_key"`
		Model   string `yaml:"model"`
	} `yaml:"llm"`
}

// Load reads YAML config from path.
func Load(path string) (Config, error) {
	cfg := Config{}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Duration parses a duration string or returns the fallback if empty or
// malformed.
func Duration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	return fallback
}

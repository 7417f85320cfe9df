package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Load reads a preset from a YAML file. Fields absent from the file keep
// the values of the built-in preset named by the file's "name" key
// (normal when omitted).
func Load(path string) (*Preset, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read preset: %w", err)
	}

	var head struct {
		Name string `yaml:"name"`
	}
	if err := yaml.Unmarshal(b, &head); err != nil {
		return nil, fmt.Errorf("parse preset: %w", err)
	}
	base, err := ByName(head.Name)
	if err != nil {
		// Custom names start from normal.
		base = Normal()
		base.Name = head.Name
	}

	if err := yaml.Unmarshal(b, &base); err != nil {
		return nil, fmt.Errorf("parse preset: %w", err)
	}
	if err := base.Validate(); err != nil {
		return nil, err
	}
	return &base, nil
}

// Runtime holds process-level settings for the outbreak server.
type Runtime struct {
	Difficulty string
	PresetPath string
	Seed       uint64
	DBPath     string
	Port       int
	AdminKey   string
	EntropyKey string
	FrameRate  int
	LogLevel   string
}

// FromEnv loads runtime settings from environment variables, falling back
// to defaults when a variable is unset or malformed.
func FromEnv() Runtime {
	rt := Runtime{
		Difficulty: "normal",
		DBPath:     "data/outbreak.db",
		Port:       8080,
		FrameRate:  30,
		LogLevel:   "info",
	}

	if v := os.Getenv("OUTBREAK_DIFFICULTY"); v != "" {
		rt.Difficulty = v
	}
	rt.PresetPath = os.Getenv("OUTBREAK_PRESET")
	if v := os.Getenv("OUTBREAK_SEED"); v != "" {
		if seed, err := strconv.ParseUint(v, 10, 64); err == nil {
			rt.Seed = seed
		}
	}
	if v, ok := os.LookupEnv("OUTBREAK_DB"); ok {
		rt.DBPath = v
	}
	if val := getEnvInt("OUTBREAK_PORT"); val > 0 {
		rt.Port = val
	}
	if val := getEnvInt("OUTBREAK_FPS"); val > 0 {
		rt.FrameRate = val
	}
	if v := os.Getenv("OUTBREAK_LOG_LEVEL"); v != "" {
		rt.LogLevel = v
	}
	rt.AdminKey = os.Getenv("OUTBREAK_ADMIN_KEY")
	rt.EntropyKey = os.Getenv("RANDOM_ORG_API_KEY")
	return rt
}

// Preset resolves the session preset: a YAML file when configured,
// otherwise the built-in difficulty.
func (rt Runtime) Preset() (*Preset, error) {
	if rt.PresetPath != "" {
		return Load(rt.PresetPath)
	}
	p, err := ByName(rt.Difficulty)
	if err != nil {
		return nil, err
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &p, nil
}

func getEnvInt(key string) int {
	val := os.Getenv(key)
	if val == "" {
		return 0
	}
	num, err := strconv.Atoi(val)
	if err != nil {
		return 0
	}
	return num
}

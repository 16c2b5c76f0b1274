package config

import (
	"fmt"

	"github.com/ilyakaznacheev/cleanenv"
)

type Config struct {
	LogLevel          string  `yaml:"log-level" env-default:"info"`
	HTTPPort          string  `yaml:"http-port" env-default:"9090"`
	SocketPort        string  `yaml:"socket-port" env-default:"9091"`
	StateKey          string  `yaml:"state-key" env-default:"scoreboard:state"`
	SQLiteStoragePath string  `yaml:"sqlite-storage-path" env-default:"scoreboard.db"`
	Redis             Redis   `yaml:"redis"`
	Players           Players `yaml:"players"`
}

// Redis - connection details for the shared state backend. An empty host
// keeps the state in process memory instead.
type Redis struct {
	Host string `yaml:"host"`
	Port string `yaml:"port" env-default:"6379"`
}

// Players - optional overrides for the two fixed players. Ids stay 1 and 2,
// only the presentation fields can be changed.
type Players struct {
	First  PlayerOverride `yaml:"first"`
	Second PlayerOverride `yaml:"second"`
}

type PlayerOverride struct {
	Name       string `yaml:"name"`
	IconClass  string `yaml:"icon-class"`
	ColorClass string `yaml:"color-class"`
}

// MustLoad - load all configurations in config.yml file.
func MustLoad(path string) *Config {
	config := &Config{}

	if err := cleanenv.ReadConfig(path, config); err != nil {
		panic(fmt.Errorf("unable to load config file: %w", err))
	}

	return config
}

func (that *Redis) GetRedisAddr() string {
	if that.Host == "" {
		return ""
	}

	return fmt.Sprintf("%s:%s", that.Host, that.Port)
}

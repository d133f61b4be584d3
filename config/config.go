package config

import (
	"os"
	"strconv"
	"sync"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
)

type Config struct {
	Host string `toml:"host" mapstructure:"host"`
	Port string `toml:"port" mapstructure:"port"`
	Env  string `toml:"env" mapstructure:"env"`

	Weights             string  `toml:"weights" mapstructure:"weights"`
	ConfidenceThreshold float64 `toml:"confidence_threshold" mapstructure:"confidence_threshold"`
	IoUThreshold        float64 `toml:"iou_threshold" mapstructure:"iou_threshold"`
	PoolSize            int     `toml:"pool_size" mapstructure:"pool_size"`
	Libonnx             string  `toml:"libonnx" mapstructure:"libonnx"`
}

var (
	cfg = Config{
		Host:                "0.0.0.0",
		Port:                "8001",
		Weights:             "weights/yolov8n.onnx",
		ConfidenceThreshold: 0.5,
		IoUThreshold:        0.45,
		PoolSize:            2,
	}
	loadOnce sync.Once
)

func C() Config {
	loadOnce.Do(load)
	return cfg
}

// load overlays config.toml on the defaults, then the environment on both.
func load() {
	if _, err := os.Stat("config.toml"); err == nil {
		data, err := os.ReadFile("config.toml")
		if err != nil {
			panic(err)
		}
		if err := toml.Unmarshal(data, &cfg); err != nil {
			panic(err)
		}
	}

	_ = godotenv.Load()

	cfg.Host = getEnv("HOST", cfg.Host)
	cfg.Port = getEnv("PORT", cfg.Port)
	cfg.Env = getEnv("ENV", cfg.Env)
	cfg.Weights = getEnv("VY_YOLO_WEIGHTS", cfg.Weights)
	cfg.ConfidenceThreshold = getEnvFloat("VY_CONFIDENCE_THRESHOLD", cfg.ConfidenceThreshold)
	cfg.IoUThreshold = getEnvFloat("VY_IOU_THRESHOLD", cfg.IoUThreshold)
	cfg.PoolSize = getEnvInt("VY_POOL_SIZE", cfg.PoolSize)
	cfg.Libonnx = getEnv("VY_LIBONNX", cfg.Libonnx)
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

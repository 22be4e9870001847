package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config 應用配置
type Config struct {
	App         AppConfig       `mapstructure:"app"`
	Server      ServerConfig    `mapstructure:"server"`
	Vision      VisionConfig    `mapstructure:"vision"`
	Analysis    AnalysisConfig  `mapstructure:"analysis"`
	HTML        HTMLConfig      `mapstructure:"html"`
	Upload      UploadConfig    `mapstructure:"upload"`
	Redis       RedisConfig     `mapstructure:"redis"`
	Scheduler   SchedulerConfig `mapstructure:"scheduler"`
	RateLimit   RateLimitConfig `mapstructure:"rate_limit"`
	DedupWindow time.Duration   `mapstructure:"dedup_window"`
	LogLevel    string          `mapstructure:"log_level"`
}

// AppConfig 應用程式設定
type AppConfig struct {
	Env      string `mapstructure:"env"`
	Debug    bool   `mapstructure:"debug"`
	LogLevel string `mapstructure:"log_level"`
	Version  string `mapstructure:"version"`
	Name     string `mapstructure:"name"`
}

// ServerConfig 服務器配置
type ServerConfig struct {
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
}

// VisionConfig 視覺模型服務配置
type VisionConfig struct {
	APIKey    string        `mapstructure:"api_key"`
	Model     string        `mapstructure:"model"`
	BaseURL   string        `mapstructure:"base_url"`
	MaxTokens int           `mapstructure:"max_tokens"`
	Timeout   time.Duration `mapstructure:"timeout"`
}

// AnalysisConfig 分析任務設定
type AnalysisConfig struct {
	MaxRetries int `mapstructure:"max_retries"`
	// RetryDelays 重試退避時間表；超過長度的重試沿用最後一個延遲
	RetryDelays []time.Duration `mapstructure:"retry_delays"`
	// ConfidenceThreshold 保留 recipeData 的最低信心值
	ConfidenceThreshold float64 `mapstructure:"confidence_threshold"`
	// CreationThreshold 自動建立食譜的最低信心值（比保留門檻更嚴格）
	CreationThreshold float64 `mapstructure:"creation_threshold"`
}

// HTMLConfig 網頁匯入設定
type HTMLConfig struct {
	MaxInputChars int `mapstructure:"max_input_chars"`
}

// UploadConfig 上傳設定
type UploadConfig struct {
	MaxSizeBytes    int64    `mapstructure:"max_size_bytes"`
	AllowedTypes    []string `mapstructure:"allowed_types"`
	DefaultImageURL string   `mapstructure:"default_image_url"`
}

// RedisConfig Redis 設定
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// SchedulerConfig 排程器設定
type SchedulerConfig struct {
	Workers   int `mapstructure:"workers"`
	QueueSize int `mapstructure:"queue_size"`
}

// RateLimitConfig 速率限制配置
type RateLimitConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Requests int           `mapstructure:"requests"`
	Window   time.Duration `mapstructure:"window"`
}

// LoadConfig 載入設定
func LoadConfig() (*Config, error) {
	// 加載 .env 文件
	if err := godotenv.Load(); err != nil {
		fmt.Println("Warning: .env file not found")
	}

	// 設定預設值
	setDefaults()

	// 設定環境變數前綴
	viper.SetEnvPrefix("APP")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// 綁定環境變量
	viper.BindEnv("vision.api_key", "VISION_API_KEY")
	viper.BindEnv("vision.model", "VISION_MODEL")
	viper.BindEnv("vision.base_url", "VISION_BASE_URL")
	viper.BindEnv("vision.max_tokens", "MODEL_MAX_TOKENS")
	viper.BindEnv("redis.addr", "REDIS_ADDR")
	viper.BindEnv("redis.password", "REDIS_PASSWORD")
	viper.BindEnv("rate_limit.enabled", "RATE_LIMIT_ENABLED")
	viper.BindEnv("rate_limit.requests", "RATE_LIMIT_REQUESTS")
	viper.BindEnv("rate_limit.window", "RATE_LIMIT_WINDOW")
	viper.BindEnv("dedup_window", "DEDUP_WINDOW")
	viper.BindEnv("log_level", "LOG_LEVEL")

	// 設定設定檔名稱和路徑
	viper.SetConfigName(".env")
	viper.SetConfigType("env")
	viper.AddConfigPath(".")

	// 讀取設定檔
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// 添加調試日誌（logger 尚未初始化，改用 fmt.Println）
	fmt.Println("Loading configuration", "vision_api_key:", maskAPIKey(viper.GetString("vision.api_key")), "vision_model:", viper.GetString("vision.model"))

	// 解析設定
	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// 驗證必要設定
	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &config, nil
}

// maskAPIKey 遮罩 API Key，只顯示前後各 4 個字符
func maskAPIKey(key string) string {
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "..." + key[len(key)-4:]
}

// setDefaults 設定預設值
func setDefaults() {
	// 應用程式設定
	viper.SetDefault("app.env", "development")
	viper.SetDefault("app.debug", true)
	viper.SetDefault("app.log_level", "info")
	viper.SetDefault("app.version", "1.0.0")
	viper.SetDefault("app.name", "recipe-importer")

	// 伺服器設定
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.read_timeout", "30s")
	viper.SetDefault("server.write_timeout", "30s")
	viper.SetDefault("server.idle_timeout", "120s")

	// 視覺模型設定
	viper.SetDefault("vision.model", "gpt-4o")
	viper.SetDefault("vision.base_url", "https://api.openai.com/v1")
	viper.SetDefault("vision.max_tokens", 4096)
	viper.SetDefault("vision.timeout", "60s")

	// 分析任務設定
	viper.SetDefault("analysis.max_retries", 3)
	viper.SetDefault("analysis.retry_delays", []string{"5s", "30s", "2m"})
	viper.SetDefault("analysis.confidence_threshold", 0.7)
	viper.SetDefault("analysis.creation_threshold", 0.8)

	// 網頁匯入設定
	viper.SetDefault("html.max_input_chars", 120000)

	// 上傳設定
	viper.SetDefault("upload.max_size_bytes", 10*1024*1024) // 10MB
	viper.SetDefault("upload.allowed_types", []string{"image/jpeg", "image/png", "image/webp", "image/gif", "text/html"})
	viper.SetDefault("upload.default_image_url", "https://images.unsplash.com/photo-1546069901-ba9599a7e63c?w=400&h=300&fit=crop")

	// Redis 設定
	viper.SetDefault("redis.addr", "localhost:6379")
	viper.SetDefault("redis.db", 0)

	// 排程器設定
	viper.SetDefault("scheduler.workers", 5)
	viper.SetDefault("scheduler.queue_size", 100)

	// 限流設定
	viper.SetDefault("rate_limit.enabled", true)
	viper.SetDefault("rate_limit.requests", 100)
	viper.SetDefault("rate_limit.window", "1m")

	// 去重設定
	viper.SetDefault("dedup_window", "1s")
}

// validateConfig 驗證設定
func validateConfig(config *Config) error {
	// 驗證伺服器設定
	if config.Server.Port == 0 {
		return fmt.Errorf("server port is required")
	}

	// 驗證分析任務設定
	if config.Analysis.MaxRetries < 0 {
		return fmt.Errorf("invalid analysis max retries")
	}
	if len(config.Analysis.RetryDelays) == 0 {
		return fmt.Errorf("analysis retry delays cannot be empty")
	}
	if config.Analysis.ConfidenceThreshold < 0 || config.Analysis.ConfidenceThreshold > 1 {
		return fmt.Errorf("invalid confidence threshold")
	}
	if config.Analysis.CreationThreshold < config.Analysis.ConfidenceThreshold {
		return fmt.Errorf("creation threshold must not be below confidence threshold")
	}

	// 驗證網頁匯入設定
	if config.HTML.MaxInputChars <= 0 {
		return fmt.Errorf("invalid html max input chars")
	}

	// 驗證排程器設定
	if config.Scheduler.Workers <= 0 {
		return fmt.Errorf("invalid scheduler workers")
	}
	if config.Scheduler.QueueSize <= 0 {
		return fmt.Errorf("invalid scheduler queue size")
	}

	return nil
}

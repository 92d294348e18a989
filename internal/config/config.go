package config

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/cloudwego/eino-ext/components/model/ark"
	"github.com/cloudwego/eino/components/model"
)

// Config aggregates every tunable of the gateway.
type Config struct {
	Server  ServerConfig
	Service ServiceConfig
	Auth    AuthConfig
	Speech  SpeechConfig
	Pace    PaceConfig
	Media   MediaConfig
	AI      AIConfig
	Logging LoggingConfig
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	server, err := loadServerConfig()
	if err != nil {
		return nil, err
	}

	service, err := loadServiceConfig()
	if err != nil {
		return nil, err
	}

	speech, err := loadSpeechConfig()
	if err != nil {
		return nil, err
	}

	pace, err := loadPaceConfig()
	if err != nil {
		return nil, err
	}

	ai, err := loadAIConfig()
	if err != nil {
		return nil, err
	}

	media, err := loadMediaConfig()
	if err != nil {
		return nil, err
	}

	return &Config{
		Server:  server,
		Service: service,
		Auth:    loadAuthConfig(),
		Speech:  speech,
		Pace:    pace,
		Media:   media,
		AI:      ai,
		Logging: loadLoggingConfig(),
	}, nil
}

// ServerConfig describes the local gateway listener.
type ServerConfig struct {
	Addr string
}

func loadServerConfig() (ServerConfig, error) {
	port := strings.TrimSpace(os.Getenv("PORT"))
	if port == "" {
		port = "3100"
	}

	if strings.Contains(port, ":") {
		// Accept ":3100" or "127.0.0.1:3100" verbatim.
		return ServerConfig{Addr: port}, nil
	}

	if strings.Contains(port, " ") {
		return ServerConfig{}, fmt.Errorf("invalid PORT value: %q", port)
	}

	return ServerConfig{Addr: ":" + port}, nil
}

// ServiceConfig points at the external Interview Service.
type ServiceConfig struct {
	BaseURL string
	Timeout time.Duration
}

func loadServiceConfig() (ServiceConfig, error) {
	timeout, err := parseOptionalIntEnv("INTERVIEW_SERVICE_TIMEOUT")
	if err != nil {
		return ServiceConfig{}, err
	}
	timeoutSeconds := 20
	if timeout != nil {
		if *timeout < 1 {
			return ServiceConfig{}, fmt.Errorf("INTERVIEW_SERVICE_TIMEOUT must be positive, got %d", *timeout)
		}
		timeoutSeconds = *timeout
	}

	return ServiceConfig{
		BaseURL: getEnvOrDefault("INTERVIEW_SERVICE_URL", "http://127.0.0.1:8000"),
		Timeout: time.Duration(timeoutSeconds) * time.Second,
	}, nil
}

// AuthConfig describes where the identity token comes from.
type AuthConfig struct {
	TokenFile string
	Token     string
	Secret    string
	LoginURL  string
}

func loadAuthConfig() AuthConfig {
	return AuthConfig{
		TokenFile: strings.TrimSpace(os.Getenv("AUTH_TOKEN_FILE")),
		Token:     strings.TrimSpace(os.Getenv("AUTH_TOKEN")),
		Secret:    strings.TrimSpace(os.Getenv("AUTH_JWT_SECRET")),
		LoginURL:  getEnvOrDefault("AUTH_LOGIN_URL", "/login"),
	}
}

// SpeechConfig tunes the playback and capture adapters.
type SpeechConfig struct {
	WatchdogInterval time.Duration
	RetryDelay       time.Duration
	PreferredVoices  []string
	Rate             float32
	Pitch            float32
	Volume           float32
}

func loadSpeechConfig() (SpeechConfig, error) {
	watchdogMillis, err := parseOptionalIntEnv("SPEECH_WATCHDOG_INTERVAL_MS")
	if err != nil {
		return SpeechConfig{}, err
	}
	watchdog := time.Second
	if watchdogMillis != nil && *watchdogMillis > 0 {
		watchdog = time.Duration(*watchdogMillis) * time.Millisecond
	}

	retryMillis, err := parseOptionalIntEnv("SPEECH_RETRY_DELAY_MS")
	if err != nil {
		return SpeechConfig{}, err
	}
	retry := 100 * time.Millisecond
	if retryMillis != nil && *retryMillis > 0 {
		retry = time.Duration(*retryMillis) * time.Millisecond
	}

	voices := []string{"Google UK English Female", "Female", "Samantha"}
	if raw := strings.TrimSpace(os.Getenv("SPEECH_PREFERRED_VOICES")); raw != "" {
		voices = voices[:0]
		for _, v := range strings.Split(raw, ",") {
			if v = strings.TrimSpace(v); v != "" {
				voices = append(voices, v)
			}
		}
	}

	rate, err := parseOptionalFloat32Env("SPEECH_RATE")
	if err != nil {
		return SpeechConfig{}, err
	}
	pitch, err := parseOptionalFloat32Env("SPEECH_PITCH")
	if err != nil {
		return SpeechConfig{}, err
	}
	volume, err := parseOptionalFloat32Env("SPEECH_VOLUME")
	if err != nil {
		return SpeechConfig{}, err
	}

	cfg := SpeechConfig{
		WatchdogInterval: watchdog,
		RetryDelay:       retry,
		PreferredVoices:  voices,
		Rate:             1.0,
		Pitch:            1.0,
		Volume:           1.0,
	}
	if rate != nil {
		cfg.Rate = *rate
	}
	if pitch != nil {
		cfg.Pitch = *pitch
	}
	if volume != nil {
		cfg.Volume = *volume
	}
	return cfg, nil
}

// PaceConfig holds the named conversation delays. Tests inject zero values.
type PaceConfig struct {
	Greeting      time.Duration
	FirstQuestion time.Duration
	Question      time.Duration
	FollowUp      time.Duration
	Redirect      time.Duration
}

// DefaultPace is the conversational rhythm of the interviewer.
func DefaultPace() PaceConfig {
	return PaceConfig{
		Greeting:      2 * time.Second,
		FirstQuestion: time.Second,
		Question:      1500 * time.Millisecond,
		FollowUp:      2 * time.Second,
		Redirect:      2 * time.Second,
	}
}

func loadPaceConfig() (PaceConfig, error) {
	pace := DefaultPace()
	overrides := []struct {
		key string
		dst *time.Duration
	}{
		{"PACE_GREETING_MS", &pace.Greeting},
		{"PACE_FIRST_QUESTION_MS", &pace.FirstQuestion},
		{"PACE_QUESTION_MS", &pace.Question},
		{"PACE_FOLLOWUP_MS", &pace.FollowUp},
		{"PACE_REDIRECT_MS", &pace.Redirect},
	}
	for _, o := range overrides {
		millis, err := parseOptionalIntEnv(o.key)
		if err != nil {
			return PaceConfig{}, err
		}
		if millis != nil {
			if *millis < 0 {
				return PaceConfig{}, fmt.Errorf("%s must not be negative, got %d", o.key, *millis)
			}
			*o.dst = time.Duration(*millis) * time.Millisecond
		}
	}
	return pace, nil
}

// MediaConfig tunes local microphone capture.
type MediaConfig struct {
	Enabled  bool
	Input    string
	Fallback string
}

func loadMediaConfig() (MediaConfig, error) {
	enabled, err := parseBoolEnv("MEDIA_CAPTURE_ENABLED", false)
	if err != nil {
		return MediaConfig{}, err
	}
	return MediaConfig{
		Enabled:  enabled,
		Input:    strings.TrimSpace(os.Getenv("MEDIA_INPUT")),
		Fallback: strings.TrimSpace(os.Getenv("MEDIA_INPUT_FALLBACK")),
	}, nil
}

// AIConfig describes the optional follow-up model.
type AIConfig struct {
	APIKey      string
	Model       string
	BaseURL     string
	Region      string
	Temperature *float64
	MaxTokens   *int
}

// Enabled reports whether follow-up generation credentials are present.
func (c AIConfig) Enabled() bool {
	return c.Model != "" && c.APIKey != ""
}

// NewChatModel creates a model instance from the configuration.
func (c AIConfig) NewChatModel(ctx context.Context) (model.ChatModel, error) {
	if !c.Enabled() {
		return nil, fmt.Errorf("ark credentials missing, provide ARK_API_KEY and ARK_MODEL")
	}

	var temperature *float32
	if c.Temperature != nil {
		val := float32(*c.Temperature)
		temperature = &val
	}

	return ark.NewChatModel(ctx, &ark.ChatModelConfig{
		BaseURL:     c.BaseURL,
		Region:      c.Region,
		APIKey:      c.APIKey,
		Model:       c.Model,
		MaxTokens:   c.MaxTokens,
		Temperature: temperature,
	})
}

func loadAIConfig() (AIConfig, error) {
	temperature, err := parseOptionalFloatEnv("ARK_TEMPERATURE")
	if err != nil {
		return AIConfig{}, err
	}

	maxTokens, err := parseOptionalIntEnv("ARK_MAX_TOKENS")
	if err != nil {
		return AIConfig{}, err
	}

	return AIConfig{
		APIKey:      strings.TrimSpace(os.Getenv("ARK_API_KEY")),
		Model:       strings.TrimSpace(os.Getenv("ARK_MODEL")),
		BaseURL:     getEnvOrDefault("ARK_BASE_URL", "https://ark.cn-beijing.volces.com/api/v3"),
		Region:      getEnvOrDefault("ARK_REGION", "cn-beijing"),
		Temperature: temperature,
		MaxTokens:   maxTokens,
	}, nil
}

// LoggingConfig describes log file placement.
type LoggingConfig struct {
	Dir   string
	Debug bool
}

func loadLoggingConfig() LoggingConfig {
	debug := false
	if raw := strings.TrimSpace(os.Getenv("LOG_DEBUG")); raw != "" {
		debug, _ = strconv.ParseBool(raw)
	}
	return LoggingConfig{
		Dir:   getEnvOrDefault("LOG_DIR", "./logs"),
		Debug: debug,
	}
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func parseBoolEnv(key string, defaultValue bool) (bool, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return defaultValue, nil
	}

	val, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("invalid %s value %q: %w", key, raw, err)
	}
	return val, nil
}

func parseOptionalFloatEnv(key string) (*float64, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return nil, nil
	}

	value := strings.TrimSpace(raw)
	if value == "" {
		return nil, nil
	}

	val, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", key, value, err)
	}
	return &val, nil
}

func parseOptionalIntEnv(key string) (*int, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return nil, nil
	}

	value := strings.TrimSpace(raw)
	if value == "" {
		return nil, nil
	}

	val, err := strconv.Atoi(value)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", key, value, err)
	}
	return &val, nil
}

func parseOptionalFloat32Env(key string) (*float32, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return nil, nil
	}

	value := strings.TrimSpace(raw)
	if value == "" {
		return nil, nil
	}

	val, err := strconv.ParseFloat(value, 32)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", key, value, err)
	}
	result := float32(val)
	return &result, nil
}

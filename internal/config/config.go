package config

import (
	"crypto/rand"
	"encoding/hex"
	"log"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Port          int
	MediaPath     string
	DataPath      string
	DBPath        string
	AudioPath     string // dubbing output
	JWTSecret     string
	AdminUsername string
	AdminPassword string
	CORSOrigins   []string

	SourceLanguage  string
	TargetLanguages []string

	WhisperURL  string
	OpenAIKey   string
	GeminiKey   string
	GeminiModel string
	DeepLKey    string
	TTSURL      string
	TTSKey      string
}

// fileConfig mirrors the optional YAML config file. Environment
// variables always win over file values.
type fileConfig struct {
	Port      int    `yaml:"port"`
	MediaPath string `yaml:"media_path"`
	DataPath  string `yaml:"data_path"`
	Providers struct {
		WhisperURL  string `yaml:"whisper_url"`
		OpenAIKey   string `yaml:"openai_api_key"`
		GeminiKey   string `yaml:"gemini_api_key"`
		GeminiModel string `yaml:"gemini_model"`
		DeepLKey    string `yaml:"deepl_api_key"`
		TTSURL      string `yaml:"tts_url"`
		TTSKey      string `yaml:"tts_api_key"`
	} `yaml:"providers"`
}

func Load() *Config {
	fc := loadFile(os.Getenv("CONFIG_FILE"))

	port, _ := strconv.Atoi(getEnv("PORT", intOr(fc.Port, "8080")))
	dataPath := getEnv("DATA_PATH", strOr(fc.DataPath, "/data"))

	// JWT secret: require explicit setting or generate random
	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		b := make([]byte, 32)
		if _, err := rand.Read(b); err != nil {
			log.Fatalf("Failed to generate random JWT secret: %v", err)
		}
		jwtSecret = hex.EncodeToString(b)
		log.Println("WARNING: JWT_SECRET not set, using random secret. Sessions will not survive restarts. Set JWT_SECRET env var for persistent sessions.")
	}

	// CORS origins: comma-separated list or "*" (default)
	corsOrigins := []string{"*"}
	if v := os.Getenv("CORS_ORIGINS"); v != "" {
		origins := strings.Split(v, ",")
		corsOrigins = make([]string, 0, len(origins))
		for _, o := range origins {
			o = strings.TrimSpace(o)
			if o != "" {
				corsOrigins = append(corsOrigins, o)
			}
		}
	}

	targetLangs := []string{"en", "hi", "ar", "es", "fr"}
	if v := os.Getenv("TARGET_LANGUAGES"); v != "" {
		targetLangs = nil
		for _, l := range strings.Split(v, ",") {
			if l = strings.TrimSpace(l); l != "" {
				targetLangs = append(targetLangs, l)
			}
		}
	}

	return &Config{
		Port:          port,
		MediaPath:     getEnv("MEDIA_PATH", strOr(fc.MediaPath, "/media")),
		DataPath:      dataPath,
		DBPath:        getEnv("DB_PATH", dataPath+"/bangladub.db"),
		AudioPath:     getEnv("AUDIO_PATH", dataPath+"/audio"),
		JWTSecret:     jwtSecret,
		AdminUsername: getEnv("ADMIN_USERNAME", "admin"),
		AdminPassword: getEnv("ADMIN_PASSWORD", "admin"),
		CORSOrigins:   corsOrigins,

		SourceLanguage:  getEnv("SOURCE_LANGUAGE", "bn"),
		TargetLanguages: targetLangs,

		WhisperURL:  getEnv("WHISPER_URL", fc.Providers.WhisperURL),
		OpenAIKey:   getEnv("OPENAI_API_KEY", fc.Providers.OpenAIKey),
		GeminiKey:   getEnv("GEMINI_API_KEY", fc.Providers.GeminiKey),
		GeminiModel: getEnv("GEMINI_MODEL", strOr(fc.Providers.GeminiModel, "gemini-2.0-flash")),
		DeepLKey:    getEnv("DEEPL_API_KEY", fc.Providers.DeepLKey),
		TTSURL:      getEnv("TTS_URL", fc.Providers.TTSURL),
		TTSKey:      getEnv("TTS_API_KEY", fc.Providers.TTSKey),
	}
}

func loadFile(path string) *fileConfig {
	fc := &fileConfig{}
	if path == "" {
		return fc
	}
	data, err := os.ReadFile(path)
	if err != nil {
		log.Printf("WARNING: could not read config file %s: %v", path, err)
		return fc
	}
	if err := yaml.Unmarshal(data, fc); err != nil {
		log.Printf("WARNING: could not parse config file %s: %v", path, err)
	}
	return fc
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func strOr(v, fallback string) string {
	if v != "" {
		return v
	}
	return fallback
}

func intOr(v int, fallback string) string {
	if v != 0 {
		return strconv.Itoa(v)
	}
	return fallback
}

package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	ServerPort         string
	FirebaseProject    string
	StorageBucket      string
	Environment        string
	HandleSecret       string
	SyncInterval       time.Duration
	MaxMessageChars    int
	MaxAttachmentBytes int64
}

func Load() (*Config, error) {
	godotenv.Load()

	config := &Config{
		ServerPort:         getEnv("SERVER_PORT", "8080"),
		FirebaseProject:    getEnv("FIREBASE_PROJECT_ID", ""),
		StorageBucket:      getEnv("STORAGE_BUCKET", ""),
		Environment:        getEnv("ENVIRONMENT", "development"),
		HandleSecret:       getEnv("HANDLE_SECRET", "dev-handle-secret"),
		SyncInterval:       time.Duration(getEnvAsInt64("SYNC_INTERVAL_SECONDS", 3)) * time.Second,
		MaxMessageChars:    int(getEnvAsInt64("MAX_MESSAGE_CHARS", 200)),
		MaxAttachmentBytes: getEnvAsInt64("MAX_ATTACHMENT_BYTES", 5*1024*1024),
	}

	return config, nil
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvAsInt64(key string, defaultValue int64) int64 {
	if value, exists := os.LookupEnv(key); exists {
		intValue, err := strconv.ParseInt(value, 10, 64)
		if err == nil {
			return intValue
		}
	}
	return defaultValue
}

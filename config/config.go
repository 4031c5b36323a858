package config

import (
	"os"
	"strconv"
)

// Config is built once at startup and handed to each component; nothing reads
// the environment after Load returns.
type Config struct {
	Port          string
	Env           string // "development" or "production"
	MongoURI      string
	DBName        string
	S3Bucket      string
	S3Region      string
	S3AccessKeyID string
	S3SecretKey   string
	JWTSecret     string
	MaxUploadMB   int64
	UploadDir     string // local buffer for multipart payloads before upload
}

func Load() (*Config, error) {
	maxMB := int64(50)
	if v := getEnv("MAX_UPLOAD_MB", "50"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil && n > 0 {
			maxMB = n
		}
	}

	return &Config{
		Port:          getEnv("PORT", "8080"),
		Env:           getEnv("ENV", "production"),
		MongoURI:      getEnv("MONGODB_URI", "mongodb://localhost:27017"),
		DBName:        getEnv("MONGODB_DB", "elib"),
		S3Bucket:      getEnv("AWS_S3_BUCKET", ""),
		S3Region:      getEnv("AWS_REGION", "us-east-1"),
		S3AccessKeyID: getEnv("AWS_ACCESS_KEY_ID", ""),
		S3SecretKey:   getEnv("AWS_SECRET_ACCESS_KEY", ""),
		JWTSecret:     getEnv("JWT_SECRET", "change-me-in-production"),
		MaxUploadMB:   maxMB,
		UploadDir:     getEnv("UPLOAD_DIR", os.TempDir()),
	}, nil
}

// Development reports whether error responses should carry stack detail.
func (c *Config) Development() bool {
	return c.Env == "development"
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	Port                    string
	Env                     string
	FirebaseCredentialsPath string
	PostgresUrl             string
	MongoURI                string
	RedisAddr               string
	KafkaBrokers            string
	KafkaTopicEvents        string
	NotifDedupWindow        time.Duration
	StoryTTL                time.Duration
	StorySweepInterval      time.Duration
}

func Load() *Config {
	return &Config{
		Port:                    getEnv("PORT", "8080"),
		Env:                     getEnv("ENV", "development"),
		FirebaseCredentialsPath: getEnv("FIREBASE_CREDENTIALS_PATH", ""),
		PostgresUrl:             getEnv("POSTGRES_URL", "http://localhost:5432"),
		MongoURI:                getEnv("MONGO_URI", ""),
		RedisAddr:               getEnv("REDIS_ADDR", ""),
		KafkaBrokers:            getEnv("KAFKA_BROKERS", ""),
		KafkaTopicEvents:        getEnv("KAFKA_TOPIC_EVENTS", "snapline.events"),
		NotifDedupWindow:        getDurationEnv("NOTIF_DEDUP_WINDOW", time.Hour),
		StoryTTL:                getDurationEnv("STORY_TTL", 24*time.Hour),
		StorySweepInterval:      getDurationEnv("STORY_SWEEP_INTERVAL", 10*time.Minute),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	// plain integer seconds also accepted
	if secs, err := strconv.Atoi(value); err == nil {
		return time.Duration(secs) * time.Second
	}
	return defaultValue
}

package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all the configuration for the application
type Config struct {
	BotToken         string
	Debug            bool
	DatabasePath     string
	QuestionAPIURL   string
	QuestionAPIToken string
	LogLevel         string
	MetricsAddr      string

	AnswerTime     time.Duration
	CheckpointTime time.Duration
	HistoryLimit   int
}

// Load loads the configuration from environment variables. A .env file in
// the working directory is read first when present; real environment
// variables take precedence over it.
func Load() (*Config, error) {
	_ = godotenv.Load()

	botToken := os.Getenv("BOT_TOKEN")
	if botToken == "" {
		return nil, errors.New("BOT_TOKEN environment variable is required")
	}

	answerSeconds, err := getEnvInt("QUIZ_ANSWER_SECONDS", 30)
	if err != nil {
		return nil, err
	}
	checkpointSeconds, err := getEnvInt("QUIZ_CHECKPOINT_SECONDS", 15)
	if err != nil {
		return nil, err
	}
	historyLimit, err := getEnvInt("QUIZ_HISTORY_LIMIT", 50)
	if err != nil {
		return nil, err
	}

	return &Config{
		BotToken:         botToken,
		Debug:            os.Getenv("DEBUG") == "true",
		DatabasePath:     getEnv("DB_PATH", "./data/alphaquiz.db"),
		QuestionAPIURL:   os.Getenv("QUESTION_API_URL"),
		QuestionAPIToken: os.Getenv("QUESTION_API_TOKEN"),
		LogLevel:         getEnv("LOG_LEVEL", "info"),
		MetricsAddr:      os.Getenv("METRICS_ADDR"),
		AnswerTime:       time.Duration(answerSeconds) * time.Second,
		CheckpointTime:   time.Duration(checkpointSeconds) * time.Second,
		HistoryLimit:     historyLimit,
	}, nil
}

// getEnv reads an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("%s must be a positive integer, got %q", key, value)
	}
	return n, nil
}

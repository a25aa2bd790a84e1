package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	t.Run("missing token", func(t *testing.T) {
		t.Setenv("BOT_TOKEN", "")
		_, err := Load()
		assert.Error(t, err)
	})

	t.Run("defaults", func(t *testing.T) {
		t.Setenv("BOT_TOKEN", "token")
		t.Setenv("DB_PATH", "")
		t.Setenv("QUIZ_ANSWER_SECONDS", "")
		t.Setenv("QUIZ_CHECKPOINT_SECONDS", "")
		t.Setenv("QUIZ_HISTORY_LIMIT", "")

		cfg, err := Load()
		require.NoError(t, err)
		assert.Equal(t, "token", cfg.BotToken)
		assert.Equal(t, "./data/alphaquiz.db", cfg.DatabasePath)
		assert.Equal(t, 30*time.Second, cfg.AnswerTime)
		assert.Equal(t, 15*time.Second, cfg.CheckpointTime)
		assert.Equal(t, 50, cfg.HistoryLimit)
	})

	t.Run("overrides", func(t *testing.T) {
		t.Setenv("BOT_TOKEN", "token")
		t.Setenv("QUIZ_ANSWER_SECONDS", "20")
		t.Setenv("QUIZ_HISTORY_LIMIT", "10")
		t.Setenv("QUESTION_API_URL", "https://api.example.com")

		cfg, err := Load()
		require.NoError(t, err)
		assert.Equal(t, 20*time.Second, cfg.AnswerTime)
		assert.Equal(t, 10, cfg.HistoryLimit)
		assert.Equal(t, "https://api.example.com", cfg.QuestionAPIURL)
	})

	t.Run("invalid number", func(t *testing.T) {
		t.Setenv("BOT_TOKEN", "token")
		t.Setenv("QUIZ_CHECKPOINT_SECONDS", "soon")
		_, err := Load()
		assert.Error(t, err)
	})
}

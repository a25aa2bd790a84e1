package bot

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sirupsen/logrus"

	"github.com/korjavin/alphaquizbot/config"
	"github.com/korjavin/alphaquizbot/database"
	"github.com/korjavin/alphaquizbot/metrics"
	"github.com/korjavin/alphaquizbot/models"
	"github.com/korjavin/alphaquizbot/provider"
	"github.com/korjavin/alphaquizbot/quiz"
)

const (
	cmdStart = "start"
	cmdQuiz  = "quiz"
	cmdNew   = "new"
	cmdStop  = "stop"
	cmdCards = "cards"
	cmdStat  = "stat"
	cmdHelp  = "help"

	callbackAnswer   = "answer:"
	callbackContinue = "continue"
	callbackStop     = "stop"
	callbackRetry    = "retry"
	callbackQuiz     = "quiz"
	callbackNew      = "new"

	dbTimeout  = 5 * time.Second
	apiTimeout = 15 * time.Second
)

// messenger is the part of the Telegram API the bot uses
type messenger interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

// AlphabetSource serves the flashcards
type AlphabetSource interface {
	Alphabet(ctx context.Context) ([]models.AlphabetEntry, error)
}

// QuestionSource serves quiz questions and flashcards
type QuestionSource interface {
	quiz.QuestionProvider
	AlphabetSource
}

// Bot represents the Telegram bot
type Bot struct {
	api          messenger
	db           *database.DB
	questions    QuestionSource
	settings     quiz.Settings
	historyLimit int
	log          logrus.FieldLogger
	metrics      *metrics.Metrics
	quizOptions  []quiz.Option

	mu        sync.Mutex
	sessions  map[int64]*chatSession
	histories map[int64]*quiz.History
	cards     []models.AlphabetEntry
}

// chatSession is the quiz running in one chat
type chatSession struct {
	chatID int64
	userID int64
	ctrl   *quiz.Controller

	mu            sync.Mutex
	questionMsgID int
}

// New creates a new bot instance
func New(cfg *config.Config, db *database.DB, log logrus.FieldLogger, m *metrics.Metrics) (*Bot, error) {
	botAPI, err := tgbotapi.NewBotAPI(cfg.BotToken)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot API: %w", err)
	}
	botAPI.Debug = cfg.Debug

	var questions QuestionSource
	if cfg.QuestionAPIURL != "" {
		questions = provider.NewHTTPClient(cfg.QuestionAPIURL, cfg.QuestionAPIToken, log, m)
		log.WithField("url", cfg.QuestionAPIURL).Info("Using remote question API")
	} else {
		questions = provider.NewLocal(0)
		log.Info("QUESTION_API_URL not set, generating questions locally")
	}

	settings := quiz.DefaultSettings()
	settings.AnswerTime = cfg.AnswerTime
	settings.CheckpointTime = cfg.CheckpointTime

	b := newBot(botAPI, db, questions, settings, cfg.HistoryLimit, log, m)
	log.WithField("account", botAPI.Self.UserName).Info("Authorized on Telegram")
	return b, nil
}

func newBot(api messenger, db *database.DB, questions QuestionSource, settings quiz.Settings, historyLimit int, log logrus.FieldLogger, m *metrics.Metrics, opts ...quiz.Option) *Bot {
	return &Bot{
		api:          api,
		db:           db,
		questions:    questions,
		settings:     settings,
		historyLimit: historyLimit,
		log:          log,
		metrics:      m,
		quizOptions:  opts,
		sessions:     make(map[int64]*chatSession),
		histories:    make(map[int64]*quiz.History),
	}
}

// Start listens for updates until ctx is cancelled. Running quizzes are
// stopped, and their streaks saved, on the way out.
func (b *Bot) Start(ctx context.Context) {
	b.log.Info("Starting bot polling...")

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := b.api.GetUpdatesChan(u)

	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			b.stopAll()
			return
		case update, ok := <-updates:
			if !ok {
				b.stopAll()
				return
			}
			b.handleUpdate(update)
		}
	}
}

func (b *Bot) handleUpdate(update tgbotapi.Update) {
	if update.CallbackQuery != nil {
		b.handleCallback(update.CallbackQuery)
	} else if update.Message != nil {
		b.handleMessage(update.Message)
	}
}

// handleMessage processes incoming messages
func (b *Bot) handleMessage(message *tgbotapi.Message) {
	if message.From == nil || message.Chat == nil {
		return
	}
	chatID, userID := message.Chat.ID, message.From.ID
	b.log.WithFields(logrus.Fields{
		"chat_id":  chatID,
		"username": message.From.UserName,
	}).Debugf("Received message: %s", message.Text)

	switch commandOf(message.Text) {
	case cmdStart:
		b.sendMenu(chatID)
	case cmdQuiz:
		b.startQuiz(chatID, userID, true)
	case cmdNew:
		b.startQuiz(chatID, userID, false)
	case cmdStop:
		b.stopQuiz(chatID)
	case cmdCards:
		b.handleCards(chatID, argsOf(message.Text))
	case cmdStat:
		b.handleStat(chatID, userID)
	case cmdHelp:
		b.sendMessage(chatID, helpText)
	default:
		b.sendMessage(chatID, "Unknown command. Use /quiz to play or /help for the list of commands.")
	}
}

// commandOf extracts "quiz" from "/quiz@AlphaQuizBot extra"
func commandOf(text string) string {
	fields := strings.Fields(text)
	if len(fields) == 0 || !strings.HasPrefix(fields[0], "/") {
		return ""
	}
	cmd := strings.TrimPrefix(fields[0], "/")
	if i := strings.Index(cmd, "@"); i >= 0 {
		cmd = cmd[:i]
	}
	return strings.ToLower(cmd)
}

// argsOf returns the text after the command
func argsOf(text string) string {
	fields := strings.Fields(text)
	if len(fields) < 2 {
		return ""
	}
	return strings.Join(fields[1:], " ")
}

// handleCallback processes callback queries from inline buttons
func (b *Bot) handleCallback(callback *tgbotapi.CallbackQuery) {
	b.sendCallbackResponse(callback.ID, "")
	if callback.Message == nil || callback.Message.Chat == nil || callback.From == nil {
		return
	}
	chatID, userID := callback.Message.Chat.ID, callback.From.ID
	data := callback.Data

	switch {
	case strings.HasPrefix(data, callbackAnswer):
		b.handleAnswer(chatID, data)
	case strings.HasPrefix(data, callbackCard):
		b.handleCardCallback(chatID, data)
	case strings.HasPrefix(data, callbackAudio):
		b.handleAudioCallback(chatID, data)
	case data == callbackContinue:
		if s := b.session(chatID); s != nil && s.ctrl.ContinuePlaying() {
			b.sendMessage(chatID, "Loading the next question...")
		}
	case data == callbackStop:
		b.stopQuiz(chatID)
	case data == callbackRetry:
		if s := b.session(chatID); s != nil && s.ctrl.Retry() {
			b.sendMessage(chatID, "Trying again...")
		}
	case data == callbackQuiz:
		b.startQuiz(chatID, userID, true)
	case data == callbackNew:
		b.startQuiz(chatID, userID, false)
	default:
		b.log.WithField("data", data).Warn("Invalid callback data")
	}
}

// handleAnswer resolves "answer:<session>:<option>" and submits the option
func (b *Bot) handleAnswer(chatID int64, data string) {
	parts := strings.Split(strings.TrimPrefix(data, callbackAnswer), ":")
	if len(parts) != 2 {
		b.log.WithField("data", data).Warn("Invalid answer callback format")
		return
	}
	idx, err := strconv.Atoi(parts[1])
	if err != nil {
		b.log.WithError(err).Warn("Invalid option number in callback")
		return
	}

	s := b.session(chatID)
	if s == nil || s.ctrl.ID() != parts[0] {
		b.log.WithField("chat_id", chatID).Debug("Answer for a session that is no longer running")
		return
	}
	q := s.ctrl.Snapshot().Question
	if q == nil || idx < 0 || idx >= len(q.Options) {
		return
	}
	if !s.ctrl.SubmitAnswer(q.Options[idx]) {
		b.log.WithField("chat_id", chatID).Debug("Late answer ignored")
	}
}

func (b *Bot) session(chatID int64) *chatSession {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.sessions[chatID]
}

// historyFor returns the used-question history of a user, shared by all
// of their sessions
func (b *Bot) historyFor(userID int64) *quiz.History {
	b.mu.Lock()
	defer b.mu.Unlock()
	h, ok := b.histories[userID]
	if !ok {
		h = quiz.NewHistory(b.db.UsedQuestions(userID), b.historyLimit, b.log.WithField("user_id", userID))
		b.histories[userID] = h
	}
	return h
}

// startQuiz opens a session in the chat, resuming the saved streak when
// resume is set
func (b *Bot) startQuiz(chatID, userID int64, resume bool) {
	if b.session(chatID) != nil {
		b.sendMessage(chatID, "A quiz is already running. Use /stop to end it first.")
		return
	}

	streak := 0
	if resume {
		ctx, cancel := context.WithTimeout(context.Background(), dbTimeout)
		saved, err := b.db.GetStreak(ctx, userID)
		cancel()
		if err != nil {
			b.log.WithError(err).Warn("Failed to load saved streak")
		}
		streak = saved.Saved
	}

	history := b.historyFor(userID)
	s := &chatSession{chatID: chatID, userID: userID}
	opts := append([]quiz.Option{
		quiz.WithSettings(b.settings),
		quiz.WithLogger(b.log.WithFields(logrus.Fields{"chat_id": chatID, "user_id": userID})),
		quiz.WithMetrics(b.metrics),
	}, b.quizOptions...)
	s.ctrl = quiz.NewController(b.questions, history, &chatListener{bot: b, session: s}, opts...)

	b.mu.Lock()
	if b.sessions[chatID] != nil {
		b.mu.Unlock()
		return
	}
	b.sessions[chatID] = s
	b.mu.Unlock()

	if streak > 0 {
		b.sendMessage(chatID, fmt.Sprintf("🔥 Continuing your streak of %d. Loading question...", streak))
	} else {
		b.sendMessage(chatID, "Loading question...")
	}
	s.ctrl.Start(streak)
}

func (b *Bot) stopQuiz(chatID int64) {
	s := b.session(chatID)
	if s == nil || !s.ctrl.StopAndExit() {
		b.sendMessage(chatID, "There is no quiz running. Use /quiz to start one.")
	}
}

// endSession forgets the session once it emitted its result
func (b *Bot) endSession(s *chatSession) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.sessions[s.chatID] == s {
		delete(b.sessions, s.chatID)
	}
}

func (b *Bot) stopAll() {
	b.mu.Lock()
	sessions := make([]*chatSession, 0, len(b.sessions))
	for _, s := range b.sessions {
		sessions = append(sessions, s)
	}
	b.mu.Unlock()

	for _, s := range sessions {
		s.ctrl.StopAndExit()
	}
}

// handleStat sends the user's statistics
func (b *Bot) handleStat(chatID, userID int64) {
	ctx, cancel := context.WithTimeout(context.Background(), dbTimeout)
	defer cancel()

	correct, incorrect, err := b.db.GetUserStats(ctx, userID)
	if err != nil {
		b.log.WithError(err).Error("Error getting user stats")
		b.sendMessage(chatID, "Sorry, I couldn't retrieve your statistics. Please try again later.")
		return
	}
	streak, err := b.db.GetStreak(ctx, userID)
	if err != nil {
		b.log.WithError(err).Warn("Error getting saved streak")
	}

	var misses []models.QuestionMiss
	if incorrect > 0 {
		misses, err = b.db.GetMostFrequentIncorrectQuestions(ctx, userID, 3)
		if err != nil {
			b.log.WithError(err).Warn("Error getting incorrect questions")
		}
	}

	b.sendMessage(chatID, formatStats(correct, incorrect, streak, misses))
}

func (b *Bot) sendMenu(chatID int64) {
	msg := tgbotapi.NewMessage(chatID, welcomeText)
	msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🔥 Play", callbackQuiz),
			tgbotapi.NewInlineKeyboardButtonData("🆕 New game", callbackNew),
		),
	)
	b.send(msg)
}

// sendMessage sends a text message
func (b *Bot) sendMessage(chatID int64, text string) {
	b.send(tgbotapi.NewMessage(chatID, text))
}

func (b *Bot) send(c tgbotapi.Chattable) (tgbotapi.Message, bool) {
	sent, err := b.api.Send(c)
	if err != nil {
		b.log.WithError(err).Warn("Error sending message")
		return sent, false
	}
	return sent, true
}

// sendCallbackResponse sends a response to a callback query
func (b *Bot) sendCallbackResponse(callbackID, text string) {
	if _, err := b.api.Request(tgbotapi.NewCallback(callbackID, text)); err != nil {
		b.log.WithError(err).Warn("Error sending callback response")
	}
}

// clearKeyboard removes the inline buttons of a message
func (b *Bot) clearKeyboard(chatID int64, messageID int) {
	if messageID == 0 {
		return
	}
	edit := tgbotapi.NewEditMessageReplyMarkup(chatID, messageID, tgbotapi.InlineKeyboardMarkup{
		InlineKeyboard: [][]tgbotapi.InlineKeyboardButton{},
	})
	if _, err := b.api.Request(edit); err != nil {
		b.log.WithError(err).Debug("Error removing keyboard")
	}
}

package bot

import (
	"context"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/korjavin/alphaquizbot/models"
	"github.com/korjavin/alphaquizbot/quiz"
)

// chatListener renders the events of one quiz session into its chat
type chatListener struct {
	bot     *Bot
	session *chatSession
}

func (l *chatListener) QuestionShown(s quiz.Snapshot) {
	b, chatID := l.bot, l.session.chatID
	q := s.Question

	if q.ImageURL != "" {
		photo := tgbotapi.NewPhoto(chatID, tgbotapi.FileURL(q.ImageURL))
		if _, ok := b.send(photo); !ok {
			b.log.WithField("url", q.ImageURL).Debug("Question image could not be sent")
		}
	}

	var rows [][]tgbotapi.InlineKeyboardButton
	for i, option := range q.Options {
		data := fmt.Sprintf("%s%s:%d", callbackAnswer, s.SessionID, i)
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData(option, data)))
	}

	msg := tgbotapi.NewMessage(chatID, formatQuestion(s))
	msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(rows...)
	if sent, ok := b.send(msg); ok {
		l.session.mu.Lock()
		l.session.questionMsgID = sent.MessageID
		l.session.mu.Unlock()
	}
}

func (l *chatListener) Ticked(s quiz.Snapshot) {
	switch {
	case s.Phase == quiz.PhaseAnswering && s.TimeRemaining == 10:
		l.bot.sendMessage(l.session.chatID, "⏳ 10 seconds left!")
	case s.Phase == quiz.PhaseCheckpoint && s.TimeRemaining == 5:
		l.bot.sendMessage(l.session.chatID, "⏳ Saving your streak in 5 seconds...")
	}
}

func (l *chatListener) Answered(s quiz.Snapshot) {
	b, chatID := l.bot, l.session.chatID

	l.session.mu.Lock()
	msgID := l.session.questionMsgID
	l.session.questionMsgID = 0
	l.session.mu.Unlock()
	b.clearKeyboard(chatID, msgID)

	ctx, cancel := context.WithTimeout(context.Background(), dbTimeout)
	defer cancel()
	if err := b.db.SaveUserActivity(ctx, models.UserActivity{
		UserID:     l.session.userID,
		QuestionID: s.Question.ID,
		Question:   s.Question.Question,
		Answer:     s.Selected,
		Correct:    s.Correct,
	}); err != nil {
		b.log.WithError(err).Warn("Error saving user activity")
	}

	b.sendMessage(chatID, formatFeedback(s))
}

func (l *chatListener) CheckpointReached(s quiz.Snapshot) {
	text := fmt.Sprintf("🔥 Current streak: %d\n\nContinue with the next question?\nYour streak is saved automatically in %d seconds.",
		s.Streak, s.TimeRemaining)
	msg := tgbotapi.NewMessage(l.session.chatID, text)
	msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("▶️ Yes, continue", callbackContinue),
			tgbotapi.NewInlineKeyboardButtonData("💾 Save and exit", callbackStop),
		),
	)
	l.bot.send(msg)
}

func (l *chatListener) FetchFailed(s quiz.Snapshot, err error) {
	msg := tgbotapi.NewMessage(l.session.chatID, "⚠️ Could not load the question.")
	msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🔄 Retry", callbackRetry),
			tgbotapi.NewInlineKeyboardButtonData("Stop", callbackStop),
		),
	)
	l.bot.send(msg)
}

func (l *chatListener) Ended(r quiz.Result) {
	b, s := l.bot, l.session
	b.endSession(s)

	s.mu.Lock()
	msgID := s.questionMsgID
	s.questionMsgID = 0
	s.mu.Unlock()
	b.clearKeyboard(s.chatID, msgID)

	ctx, cancel := context.WithTimeout(context.Background(), dbTimeout)
	defer cancel()
	if err := b.db.SaveStreak(ctx, s.userID, r.Streak); err != nil {
		b.log.WithError(err).Error("Error saving streak")
	}

	var buttons []tgbotapi.InlineKeyboardButton
	if r.Streak > 0 {
		buttons = append(buttons,
			tgbotapi.NewInlineKeyboardButtonData("🔥 Continue streak", callbackQuiz),
			tgbotapi.NewInlineKeyboardButtonData("🆕 New game", callbackNew),
		)
	} else {
		buttons = append(buttons, tgbotapi.NewInlineKeyboardButtonData("Play again", callbackNew))
	}

	msg := tgbotapi.NewMessage(s.chatID, formatResult(r))
	msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(tgbotapi.NewInlineKeyboardRow(buttons...))
	b.send(msg)
}

const welcomeText = `Welcome to AlphaQuizBot! ✈️

Learn the aeronautical (NATO) phonetic alphabet and build a streak of correct answers.

Commands:
/quiz - Play, continuing your saved streak
/new - Play a new game from zero
/stop - Stop and save your streak
/cards - Alphabet flashcards (/cards K jumps to a letter, /cards all lists them)
/stat - View your statistics
/help - Show this list`

var helpText = strings.Replace(welcomeText, "Welcome to AlphaQuizBot! ✈️\n\n", "", 1)

package bot

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/korjavin/alphaquizbot/models"
	"github.com/korjavin/alphaquizbot/provider"
)

const (
	callbackCard  = "card:"
	callbackAudio = "audio:"

	cardsAll = "all"
)

// alphabet returns the flashcards, cached after the first successful load.
// The built-in table is used while the source is unavailable.
func (b *Bot) alphabet() []models.AlphabetEntry {
	b.mu.Lock()
	cached := b.cards
	b.mu.Unlock()
	if cached != nil {
		return cached
	}

	ctx, cancel := context.WithTimeout(context.Background(), apiTimeout)
	defer cancel()
	entries, err := b.questions.Alphabet(ctx)
	if err != nil || len(entries) == 0 {
		if err != nil {
			b.log.WithError(err).Warn("Failed to load alphabet, using the built-in one")
		}
		return provider.Alphabet()
	}

	b.mu.Lock()
	b.cards = entries
	b.mu.Unlock()
	return entries
}

// handleCards shows one card, picked by letter or code word, or the whole
// list for "all"
func (b *Bot) handleCards(chatID int64, arg string) {
	entries := b.alphabet()
	if strings.EqualFold(arg, cardsAll) {
		b.sendMessage(chatID, formatCards(entries))
		return
	}

	idx := 0
	if arg != "" {
		idx = findCard(entries, arg)
		if idx < 0 {
			b.sendMessage(chatID, fmt.Sprintf("No card for %q. Try a letter like /cards K or /cards all.", arg))
			return
		}
	}
	b.sendCard(chatID, entries, idx)
}

func findCard(entries []models.AlphabetEntry, query string) int {
	for i, e := range entries {
		if strings.EqualFold(e.Letter, query) || strings.EqualFold(e.Code, query) {
			return i
		}
	}
	return -1
}

// cardIndex parses the index of a "card:" or "audio:" callback
func cardIndex(data, prefix string, n int) (int, bool) {
	idx, err := strconv.Atoi(strings.TrimPrefix(data, prefix))
	if err != nil || idx < 0 || idx >= n {
		return 0, false
	}
	return idx, true
}

// iconFor returns the card's icon, or the first card's when it has none
func iconFor(entries []models.AlphabetEntry, idx int) string {
	if entries[idx].IconURL != "" {
		return entries[idx].IconURL
	}
	return entries[0].IconURL
}

func (b *Bot) sendCard(chatID int64, entries []models.AlphabetEntry, idx int) {
	e := entries[idx]
	caption := formatCard(e, idx, len(entries))
	markup := cardKeyboard(entries, idx)

	if icon := iconFor(entries, idx); icon != "" {
		photo := tgbotapi.NewPhoto(chatID, tgbotapi.FileURL(icon))
		photo.Caption = caption
		photo.ReplyMarkup = markup
		if _, ok := b.send(photo); ok {
			return
		}
		b.log.WithField("url", icon).Debug("Card icon could not be sent, falling back to text")
	}

	msg := tgbotapi.NewMessage(chatID, caption)
	msg.ReplyMarkup = markup
	b.send(msg)
}

func cardKeyboard(entries []models.AlphabetEntry, idx int) tgbotapi.InlineKeyboardMarkup {
	n := len(entries)
	prev, next := (idx+n-1)%n, (idx+1)%n

	row := []tgbotapi.InlineKeyboardButton{
		tgbotapi.NewInlineKeyboardButtonData("◀️ "+entries[prev].Letter, callbackCard+strconv.Itoa(prev)),
	}
	if entries[idx].AudioURL != "" || entries[idx].Pronunciation != "" {
		row = append(row, tgbotapi.NewInlineKeyboardButtonData("🔊 Listen", callbackAudio+strconv.Itoa(idx)))
	}
	row = append(row, tgbotapi.NewInlineKeyboardButtonData(entries[next].Letter+" ▶️", callbackCard+strconv.Itoa(next)))
	return tgbotapi.NewInlineKeyboardMarkup(row)
}

func (b *Bot) handleCardCallback(chatID int64, data string) {
	entries := b.alphabet()
	if idx, ok := cardIndex(data, callbackCard, len(entries)); ok {
		b.sendCard(chatID, entries, idx)
	}
}

// handleAudioCallback plays the recording of a card, or spells out its
// pronunciation when there is none
func (b *Bot) handleAudioCallback(chatID int64, data string) {
	entries := b.alphabet()
	idx, ok := cardIndex(data, callbackAudio, len(entries))
	if !ok {
		return
	}
	e := entries[idx]

	if e.AudioURL != "" {
		audio := tgbotapi.NewAudio(chatID, tgbotapi.FileURL(e.AudioURL))
		audio.Caption = fmt.Sprintf("%s - %s", e.Letter, e.Code)
		if _, ok := b.send(audio); ok {
			return
		}
	}
	if e.Pronunciation != "" {
		b.sendMessage(chatID, fmt.Sprintf("🔊 %s is pronounced %s", e.Code, e.Pronunciation))
		return
	}
	b.sendMessage(chatID, fmt.Sprintf("No recording for %s yet.", e.Code))
}

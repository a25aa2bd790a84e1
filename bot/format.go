package bot

import (
	"fmt"
	"strings"

	"github.com/korjavin/alphaquizbot/models"
	"github.com/korjavin/alphaquizbot/quiz"
)

func formatQuestion(s quiz.Snapshot) string {
	return fmt.Sprintf("✈️ %s\n\n⏱ %d s   🔥 Streak: %d", s.Question.Question, s.TimeRemaining, s.Streak)
}

func formatFeedback(s quiz.Snapshot) string {
	switch {
	case s.Correct:
		return "✅ Correct! 🎉"
	case s.TimedOut:
		return fmt.Sprintf("⌛ Time is up! The right answer was: %s", s.Question.CorrectAnswer)
	default:
		return fmt.Sprintf("❌ Incorrect. The right answer was: %s", s.Question.CorrectAnswer)
	}
}

// streakMessage grades a final streak
func streakMessage(streak int) string {
	switch {
	case streak == 0:
		return "Keep practicing!"
	case streak < 5:
		return "Good job!"
	case streak < 10:
		return "Impressive!"
	default:
		return "You're an expert!"
	}
}

func formatResult(r quiz.Result) string {
	var sb strings.Builder
	switch r.Reason {
	case quiz.ReasonStopped, quiz.ReasonCheckpointExpired:
		sb.WriteString("💾 Your streak has been saved.\n\n")
	default:
		sb.WriteString("🏁 Game over.\n\n")
	}
	fmt.Fprintf(&sb, "Streak of correctly answered questions: %d\n", r.Streak)
	if r.Won > 0 {
		fmt.Fprintf(&sb, "Correct answers this game: %d\n", r.Won)
	}
	sb.WriteString(streakMessage(r.Streak))
	return sb.String()
}

func formatCard(e models.AlphabetEntry, idx, total int) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s\n%s\n", e.Letter, strings.ToUpper(e.Code))
	if e.Pronunciation != "" {
		fmt.Fprintf(&sb, "🗣 %s\n", e.Pronunciation)
	}
	fmt.Fprintf(&sb, "\nCard %d of %d", idx+1, total)
	return sb.String()
}

func formatCards(entries []models.AlphabetEntry) string {
	var sb strings.Builder
	sb.WriteString("🔤 Aeronautical alphabet\n\n")
	for _, e := range entries {
		if e.Pronunciation != "" {
			fmt.Fprintf(&sb, "%s - %s (%s)\n", e.Letter, e.Code, e.Pronunciation)
		} else {
			fmt.Fprintf(&sb, "%s - %s\n", e.Letter, e.Code)
		}
	}
	return strings.TrimRight(sb.String(), "\n")
}

func formatStats(correct, incorrect int, streak models.SavedStreak, misses []models.QuestionMiss) string {
	total := correct + incorrect
	if total == 0 && streak.Best == 0 {
		return "You haven't answered any questions yet. Use /quiz to start!"
	}

	var sb strings.Builder
	sb.WriteString("📊 Your Statistics:\n\n")
	fmt.Fprintf(&sb, "Total questions answered: %d\n", total)
	fmt.Fprintf(&sb, "Correct answers: %d\n", correct)
	fmt.Fprintf(&sb, "Incorrect answers: %d\n", incorrect)
	if total > 0 {
		fmt.Fprintf(&sb, "Accuracy: %.1f%%\n", float64(correct)/float64(total)*100)
	}
	fmt.Fprintf(&sb, "\n🔥 Saved streak: %d\n", streak.Saved)
	fmt.Fprintf(&sb, "🏆 Best streak: %d\n", streak.Best)

	if len(misses) > 0 {
		sb.WriteString("\nYour most challenging questions:\n")
		for i, m := range misses {
			label := m.Question
			if label == "" {
				label = "#" + m.QuestionID.String()
			}
			fmt.Fprintf(&sb, "%d. %s (missed %d times)\n", i+1, label, m.Count)
		}
	}
	return strings.TrimRight(sb.String(), "\n")
}

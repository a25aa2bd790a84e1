package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// QuestionID identifies a quiz question. The question API sends either an
// integer or a string, both are kept in their textual form.
type QuestionID string

// UnmarshalJSON accepts both JSON numbers and JSON strings
func (id *QuestionID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}

	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = QuestionID(s)
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("question id must be a number or a string: %w", err)
	}
	if _, err := strconv.ParseInt(n.String(), 10, 64); err != nil {
		return fmt.Errorf("question id %s is not an integer", n)
	}
	*id = QuestionID(n.String())
	return nil
}

func (id QuestionID) String() string {
	return string(id)
}

// Question is a single quiz question as served by the question API
type Question struct {
	ID            QuestionID `json:"id" validate:"required"`
	Question      string     `json:"question" validate:"required"`
	ImageURL      string     `json:"imageUrl"`
	Options       []string   `json:"options" validate:"required,min=1,unique,dive,required"`
	CorrectAnswer string     `json:"correctAnswer" validate:"required"`
}

// HasOption reports whether answer is one of the question's options
func (q *Question) HasOption(answer string) bool {
	for _, o := range q.Options {
		if o == answer {
			return true
		}
	}
	return false
}

// Clone returns a deep copy so callers never share the options slice
func (q *Question) Clone() *Question {
	if q == nil {
		return nil
	}
	c := *q
	c.Options = append([]string(nil), q.Options...)
	return &c
}

// AlphabetEntry is one flashcard of the aeronautical alphabet
type AlphabetEntry struct {
	ID            int    `json:"idAlphabet"`
	Letter        string `json:"letter" validate:"required"`
	Code          string `json:"code" validate:"required"`
	Pronunciation string `json:"pronunciation"`
	AudioURL      string `json:"audioUrl,omitempty"`
	IconURL       string `json:"iconUrl,omitempty"`
}

// UserActivity stores user interaction with questions
type UserActivity struct {
	UserID     int64
	QuestionID QuestionID
	Question   string
	Answer     string
	Correct    bool
	Timestamp  int64
}

// QuestionMiss counts how often a user answered a question incorrectly
type QuestionMiss struct {
	QuestionID QuestionID
	Question   string
	Count      int
}

// SavedStreak is the last streak a user stopped with and their best one
type SavedStreak struct {
	UserID    int64
	Saved     int
	Best      int
	UpdatedAt int64
}

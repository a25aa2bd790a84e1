package models

import (
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func validatorInstance() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New()
		validate.RegisterStructValidation(questionStructLevel, Question{})
	})
	return validate
}

// questionStructLevel enforces that the correct answer is one of the options
func questionStructLevel(sl validator.StructLevel) {
	q := sl.Current().Interface().(Question)
	if q.CorrectAnswer != "" && !q.HasOption(q.CorrectAnswer) {
		sl.ReportError(q.CorrectAnswer, "CorrectAnswer", "correctAnswer", "oneofoptions", "")
	}
}

// Validate checks a question received from a provider
func (q *Question) Validate() error {
	return validatorInstance().Struct(q)
}

// Validate checks an alphabet entry received from a provider
func (e *AlphabetEntry) Validate() error {
	return validatorInstance().Struct(e)
}

package app

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"polls-service/internal/domain"
)

// checkText records a violation when value is blank or longer than max runes.
func checkText(verr *domain.ValidationError, field, value string, max int) {
	if strings.TrimSpace(value) == "" {
		verr.Add(field, domain.CodeRequired, "This field may not be blank.")
		return
	}
	if utf8.RuneCountInString(value) > max {
		verr.Add(field, domain.CodeMaxLength, fmt.Sprintf("Ensure this field has no more than %d characters.", max))
	}
}

func checkQuestionType(verr *domain.ValidationError, t domain.QuestionType) {
	if !t.Valid() {
		codes := make([]int, 0, 3)
		for _, qt := range domain.QuestionTypes() {
			codes = append(codes, int(qt))
		}
		verr.Add("q_type", domain.CodeInvalidChoice, fmt.Sprintf("Value must be in %v.", codes))
	}
}

func checkChoices(verr *domain.ValidationError, choices []domain.ChoiceInputText) {
	for i, c := range choices {
		checkText(verr, fmt.Sprintf("choices[%d].text", i), c.Text, domain.MaxChoiceText)
	}
}


// Package validate implements the field validation engine for book
// attributes. All functions are pure: they take raw field values and return
// either the normalized value or a field-level error, with no I/O.
package validate

import (
	"strings"
	"time"

	"bookmanager/internal/domain"
)

// Reasons reported in field errors.
const (
	ReasonRequired      = "required"
	ReasonInvalidFormat = "invalid_format"
	ReasonInvalidISBN   = "invalid_checksum_or_length"
)

// DateLayout is the only accepted calendar date format.
const DateLayout = "2006-01-02"

// RequiredText checks a mandatory text field. Whitespace-only values count
// as absent.
func RequiredText(field, value string) (string, *domain.FieldError) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return "", &domain.FieldError{Field: field, Reason: ReasonRequired}
	}
	return trimmed, nil
}

// OptionalDate checks an optional year-month-day field. Absence is valid.
func OptionalDate(field, value string) (*time.Time, *domain.FieldError) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil, nil
	}
	t, err := time.Parse(DateLayout, trimmed)
	if err != nil {
		return nil, &domain.FieldError{Field: field, Reason: ReasonInvalidFormat}
	}
	return &t, nil
}

// CleanISBN normalizes an ISBN candidate: trims whitespace and strips a
// leading "ISBN" prefix token (any case) plus surrounding whitespace. It does
// not judge validity. Applying it twice yields the same result as once.
func CleanISBN(value string) string {
	s := strings.TrimSpace(value)
	if len(s) >= 4 && strings.EqualFold(s[:4], "ISBN") {
		s = strings.TrimSpace(s[4:])
	}
	return s
}

// OptionalISBN checks an optional ISBN field. Absence is valid. Otherwise the
// cleaned candidate must be exactly 10 or 13 digits; the cleaned form is what
// gets stored and echoed back.
func OptionalISBN(field, value string) (*string, *domain.FieldError) {
	if strings.TrimSpace(value) == "" {
		return nil, nil
	}
	cleaned := CleanISBN(value)
	if !allDigits(cleaned) || (len(cleaned) != 10 && len(cleaned) != 13) {
		return nil, &domain.FieldError{Field: field, Reason: ReasonInvalidISBN}
	}
	return &cleaned, nil
}

func allDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// BookAttributes validates a full attribute payload, collecting every field
// failure before returning. The same pass runs on create and on full update:
// a field omitted on update is absent, not "keep previous value".
func BookAttributes(p domain.BookPayload) (*domain.BookAttributes, error) {
	var fields []domain.FieldError
	attrs := &domain.BookAttributes{}

	if v, fe := RequiredText("title", p.Title); fe != nil {
		fields = append(fields, *fe)
	} else {
		attrs.Title = v
	}
	if v, fe := RequiredText("author", p.Author); fe != nil {
		fields = append(fields, *fe)
	} else {
		attrs.Author = v
	}
	if v, fe := OptionalDate("published_date", p.PublishedDate); fe != nil {
		fields = append(fields, *fe)
	} else {
		attrs.PublishedDate = v
	}
	if v, fe := OptionalISBN("isbn", p.ISBN); fe != nil {
		fields = append(fields, *fe)
	} else {
		attrs.ISBN = v
	}

	if len(fields) > 0 {
		return nil, domain.ErrFieldValidation(fields)
	}
	return attrs, nil
}

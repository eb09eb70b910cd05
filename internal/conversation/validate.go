package conversation

import (
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

const (
	// MaxDescriptionLength is the longest accepted description, in characters.
	MaxDescriptionLength = 200
	// DateLayout is the dd/mm/yyyy input format for due dates.
	DateLayout = "02/01/2006"
	// StoredDateLayout is how accepted dates are kept in session data.
	StoredDateLayout = time.DateOnly
)

var (
	ErrEmptyInput     = errors.New("input is empty")
	ErrTooLong        = errors.New("input is too long")
	ErrBadDate        = errors.New("date is not in dd/mm/yyyy format")
	ErrDateInPast     = errors.New("date is in the past")
	ErrDocumentNeeded = errors.New("a document is expected")
)

// Document is a file attached to an incoming message.
type Document struct {
	FileID   string
	FileName string
}

// Input is one incoming user message.
type Input struct {
	Text     string
	Document *Document
}

// Validator checks raw input and returns the value to store. now is the engine clock.
type Validator func(in Input, now time.Time) (string, error)

// NonEmptyText accepts any text with at least one non-space character.
func NonEmptyText() Validator {
	return func(in Input, _ time.Time) (string, error) {
		text := strings.TrimSpace(in.Text)
		if text == "" {
			return "", ErrEmptyInput
		}
		return text, nil
	}
}

// MaxLength accepts non-empty text of at most max characters, counted on the text as sent.
func MaxLength(max int) Validator {
	return func(in Input, _ time.Time) (string, error) {
		if n := utf8.RuneCountInString(in.Text); n > max {
			return "", fmt.Errorf("%w: %d > %d", ErrTooLong, n, max)
		}
		text := strings.TrimSpace(in.Text)
		if text == "" {
			return "", ErrEmptyInput
		}
		return text, nil
	}
}

// DueDate accepts a dd/mm/yyyy date in loc that is not before today.
func DueDate(loc *time.Location) Validator {
	if loc == nil {
		loc = time.UTC
	}

	return func(in Input, now time.Time) (string, error) {
		date, err := time.ParseInLocation(DateLayout, strings.TrimSpace(in.Text), loc)
		if err != nil {
			return "", ErrBadDate
		}

		local := now.In(loc)
		today := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
		if date.Before(today) {
			return "", ErrDateInPast
		}

		return date.Format(StoredDateLayout), nil
	}
}

// AttachedDocument accepts a message carrying a document and returns its file id.
func AttachedDocument() Validator {
	return func(in Input, _ time.Time) (string, error) {
		if in.Document == nil || in.Document.FileID == "" {
			return "", ErrDocumentNeeded
		}
		return in.Document.FileID, nil
	}
}

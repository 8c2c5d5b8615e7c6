package domain

import (
	"chat-relay/errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// PostMessageCommand is the intent of a client to append a message to the log.
type PostMessageCommand struct {
	Author string
	Text   string `validate:"required"`
}

// Normalize applies the default author and rejects whitespace-only text.
// Text is kept exactly as submitted.
func (c PostMessageCommand) Normalize() (PostMessageCommand, error) {
	if strings.TrimSpace(c.Text) == "" {
		return c, fmt.Errorf("%w: text must not be empty", errors.ErrValidation)
	}
	if err := validate.Struct(c); err != nil {
		return c, fmt.Errorf("%w: %v", errors.ErrValidation, err)
	}
	c.Author = strings.TrimSpace(c.Author)
	if c.Author == "" {
		c.Author = AnonymousAuthor
	}
	return c, nil
}

// Limits bounds the size of a submission. Zero disables a bound.
type Limits struct {
	MaxContentLength int
	MaxAuthorLength  int
}

// Check validates the command against the configured limits.
func (l Limits) Check(c PostMessageCommand) error {
	if l.MaxContentLength > 0 {
		if err := validate.Var(c.Text, fmt.Sprintf("max=%d", l.MaxContentLength)); err != nil {
			return fmt.Errorf("%w: text exceeds %d characters", errors.ErrValidation, l.MaxContentLength)
		}
	}
	if l.MaxAuthorLength > 0 {
		if err := validate.Var(c.Author, fmt.Sprintf("max=%d", l.MaxAuthorLength)); err != nil {
			return fmt.Errorf("%w: author exceeds %d characters", errors.ErrValidation, l.MaxAuthorLength)
		}
	}
	return nil
}

package domain

import (
	"chat-relay/errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPostMessageCommand_Normalize(t *testing.T) {
	tests := []struct {
		name           string
		cmd            PostMessageCommand
		expectedAuthor string
		expectedErr    error
	}{
		{name: "Empty text is rejected", cmd: PostMessageCommand{Text: ""}, expectedErr: errors.ErrValidation},
		{name: "Whitespace text is rejected", cmd: PostMessageCommand{Text: "   \t\n"}, expectedErr: errors.ErrValidation},
		{name: "Missing author defaults to anonymous", cmd: PostMessageCommand{Text: "hello"}, expectedAuthor: AnonymousAuthor},
		{name: "Blank author defaults to anonymous", cmd: PostMessageCommand{Author: "  ", Text: "hello"}, expectedAuthor: AnonymousAuthor},
		{name: "Author is trimmed", cmd: PostMessageCommand{Author: " alice ", Text: "hello"}, expectedAuthor: "alice"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := require.New(t)
			cmd, err := tt.cmd.Normalize()
			if tt.expectedErr != nil {
				req.ErrorIs(err, tt.expectedErr)
				return
			}
			req.NoError(err)
			req.Equal(tt.expectedAuthor, cmd.Author)
			req.Equal(tt.cmd.Text, cmd.Text)
		})
	}
}

func TestLimits_Check(t *testing.T) {
	req := require.New(t)
	limits := Limits{MaxContentLength: 5, MaxAuthorLength: 3}

	req.NoError(limits.Check(PostMessageCommand{Author: "bob", Text: "hello"}))
	req.ErrorIs(limits.Check(PostMessageCommand{Author: "bob", Text: "hello!"}), errors.ErrValidation)
	req.ErrorIs(limits.Check(PostMessageCommand{Author: "alice", Text: "hi"}), errors.ErrValidation)

	// Runes are counted, not bytes
	req.NoError(limits.Check(PostMessageCommand{Text: strings.Repeat("é", 5)}))
	req.NoError(Limits{}.Check(PostMessageCommand{Text: strings.Repeat("a", 10_000)}))
}

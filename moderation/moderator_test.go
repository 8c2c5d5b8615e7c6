package moderation

import (
	"chat-relay/errors"
	"log/slog"
	"testing"

	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
)

const replacementChar = '*'

// TestModerator_Censor
// Noise is stripped before matching, so inputs avoid accidental matches across word boundaries.
func TestModerator_Censor(t *testing.T) {
	req := require.New(t)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	dictionary := []string{"spam", "troll", "scam"}
	mod, err := NewModerator(dictionary, replacementChar, log)
	req.NoError(err)

	tests := []struct {
		name     string
		input    string
		expected string
		words    []string
	}{
		{
			name:     "Single word in a chat line",
			input:    "Stop the spam in this room",
			expected: "Stop the **** in this room",
			words:    []string{"spam"},
		},
		{
			name:     "Repeated word keeps the spacing",
			input:    "troll troll",
			expected: "***** *****",
			words:    []string{"troll", "troll"},
		},
		{
			name: "Leet speak split by dots",
			// $ (index 10) . c . 4 . m (index 16) -> 7 characters
			input:    "Beware of $.c.4.m links",
			expected: "Beware of ******* links",
			words:    []string{"scam"},
		},
		{
			name:     "Uppercase with dashes and dots",
			input:    "T-R-O-L-L spotted, S.P.A.M incoming",
			expected: "********* spotted, ******* incoming",
			words:    []string{"troll", "spam"},
		},
		{
			name:     "Accented neighbours (UTF-8)",
			input:    "Un été plein de scam",
			expected: "Un été plein de ****",
			words:    []string{"scam"},
		},
		{
			name:     "Trailing punctuation is preserved",
			input:    "Just a troll.",
			expected: "Just a *****.",
			words:    []string{"troll"},
		},
		{
			name:     "Nothing to censor",
			input:    "Chat-Relay keeps every message",
			expected: "Chat-Relay keeps every message",
			words:    nil,
		},
		{
			name:     "Empty message",
			input:    "",
			expected: "",
			words:    nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			content, words := mod.Censor(tt.input)
			req.Equal(tt.expected, content, "test=%s,", tt.name)
			req.Equal(tt.words, words, "expected=%s,words=%s", tt.expected, words)
		})
	}
}

func TestModerator_Ignores_Noise_Only_Entries(t *testing.T) {
	req := require.New(t)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)

	// Given a dictionary file with blank and punctuation-only lines
	mod, err := NewModerator([]string{"...", ",,,", "", "spam"}, replacementChar, log)
	req.NoError(err)

	// Then the real word is still censored
	content, words := mod.Censor("No spam here")
	req.Equal("No **** here", content)
	req.Equal([]string{"spam"}, words)

	// And punctuation in a message stays untouched
	content, words = mod.Censor("See you ...")
	req.Equal("See you ...", content)
	req.Nil(words)
}

func TestModerator_Only_Noise_Is_Rejected(t *testing.T) {
	req := require.New(t)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)

	// Given a dictionary where every word normalizes to nothing
	_, err := NewModerator([]string{"...", " ", ""}, replacementChar, log)

	// Then no automaton is built
	req.ErrorIs(err, errors.ErrEmptyWords)
}

func TestDetectLanguage(t *testing.T) {
	req := require.New(t)
	req.Equal("fr", DetectLanguage("Bonjour tout le monde, comment allez-vous aujourd'hui ?"))
	req.Equal("en", DetectLanguage("The quick brown fox jumps over the lazy dog near the river bank"))
}

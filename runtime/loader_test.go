package runtime

import (
	"chat-relay/errors"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/require"
)

func TestCensoredLoader_LoadAll_Directory(t *testing.T) {
	req := require.New(t)
	fsys := fstest.MapFS{
		"censored/en.txt":   {Data: []byte("badger\r\nsnake\n\n")},
		"censored/fr.txt":   {Data: []byte("blaireau\nbadger\n")},
		"censored/nested/x": {Data: []byte("ignored")},
	}

	data, err := NewCensoredLoader(fsys).LoadAll("censored")

	req.NoError(err)
	req.ElementsMatch([]string{"badger", "snake", "blaireau"}, data.Words)
	req.Equal([]string{"en", "fr"}, data.Languages)
}

func TestCensoredLoader_LoadAll_SingleFile(t *testing.T) {
	req := require.New(t)
	fsys := fstest.MapFS{
		"words.txt": {Data: []byte("  mushroom  \n")},
	}

	data, err := NewCensoredLoader(fsys).LoadAll("words.txt")

	req.NoError(err)
	req.Equal([]string{"mushroom"}, data.Words)
	req.Equal([]string{"words"}, data.Languages)
}

func TestCensoredLoader_LoadAll_Empty(t *testing.T) {
	req := require.New(t)
	fsys := fstest.MapFS{
		"words.txt": {Data: []byte("\n   \n")},
	}

	_, err := NewCensoredLoader(fsys).LoadAll("words.txt")
	req.ErrorIs(err, errors.ErrEmptyWords)

	_, err = NewCensoredLoader(fsys).LoadAll("missing.txt")
	req.Error(err)
}

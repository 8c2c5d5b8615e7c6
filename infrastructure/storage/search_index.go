//go:generate go run go.uber.org/mock/mockgen -source=search_index.go -destination=../../mocks/mock_search_index.go -package=mocks
package storage

import (
	"chat-relay/domain"
	"chat-relay/errors"
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/blugelabs/bluge"
)

const (
	textField   = "text"
	authorField = "author"
	idField     = "_id"
)

type ISearchIndex interface {
	Index(message domain.Message) error
	Search(ctx context.Context, query string, limit int) ([]domain.MessageID, error)
}

// SearchIndex keeps a full-text index of the message log.
// The message log stays the source of truth; the index only resolves ids.
type SearchIndex struct {
	writer *bluge.Writer
	log    *slog.Logger
}

func NewSearchIndex(writer *bluge.Writer, log *slog.Logger) *SearchIndex {
	return &SearchIndex{writer: writer, log: log}
}

func (s *SearchIndex) Index(message domain.Message) error {
	doc := bluge.NewDocument(message.ID.String()).
		AddField(bluge.NewTextField(textField, message.Text)).
		AddField(bluge.NewKeywordField(authorField, message.Author))
	return s.writer.Update(doc.ID(), doc)
}

// Search matches the query against message text, or exactly against the author.
func (s *SearchIndex) Search(ctx context.Context, query string, limit int) ([]domain.MessageID, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("%w: search query must not be empty", errors.ErrValidation)
	}
	if limit <= 0 {
		return []domain.MessageID{}, nil
	}

	reader, err := s.writer.Reader()
	if err != nil {
		return nil, fmt.Errorf("open index reader: %w", err)
	}
	defer func() { _ = reader.Close() }()

	q := bluge.NewBooleanQuery().
		AddShould(bluge.NewMatchQuery(query).SetField(textField)).
		AddShould(bluge.NewTermQuery(query).SetField(authorField)).
		SetMinShould(1)
	iterator, err := reader.Search(ctx, bluge.NewTopNSearch(limit, q))
	if err != nil {
		return nil, fmt.Errorf("search %q: %w", query, err)
	}

	var ids []domain.MessageID
	match, err := iterator.Next()
	for err == nil && match != nil {
		err = match.VisitStoredFields(func(field string, value []byte) bool {
			if field != idField {
				return true
			}
			id, parseErr := strconv.ParseUint(string(value), 10, 64)
			if parseErr != nil {
				s.log.Warn("Unparsable id in search index", "id", string(value))
				return false
			}
			ids = append(ids, domain.MessageID(id))
			return false
		})
		if err != nil {
			break
		}
		match, err = iterator.Next()
	}
	if err != nil {
		return nil, fmt.Errorf("iterate search results: %w", err)
	}
	return ids, nil
}

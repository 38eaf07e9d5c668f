package store

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"strings"

	"github.com/AplusKminus/GraphWalker/internal/errors"
)

// marshalTags converts tags to JSON TEXT for storage.
// HTML escaping is disabled so tags like "a<b" are stored verbatim.
func marshalTags(tags []string) (string, error) {
	if tags == nil {
		tags = []string{}
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(tags); err != nil {
		return "", errors.Wrap(err, "marshal tags")
	}
	// Encoder appends a newline
	return strings.TrimSuffix(buf.String(), "\n"), nil
}

// unmarshalTags parses JSON TEXT from the database. An empty column
// yields an empty, non-nil slice.
func unmarshalTags(data string) ([]string, error) {
	if data == "" {
		return []string{}, nil
	}
	var tags []string
	if err := json.Unmarshal([]byte(data), &tags); err != nil {
		return nil, errors.Wrap(err, "unmarshal tags")
	}
	if tags == nil {
		tags = []string{}
	}
	return tags, nil
}

func nullInt64(p *int64) sql.NullInt64 {
	if p == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *p, Valid: true}
}

func int64Ptr(n sql.NullInt64) *int64 {
	if !n.Valid {
		return nil
	}
	v := n.Int64
	return &v
}

func notFound(what string, id int64) error {
	return errors.NotFoundf("%s %d", what, id)
}

// wrapNoRows maps sql.ErrNoRows to ErrNotFound.
func wrapNoRows(err error, what string, id int64) error {
	if errors.Is(err, sql.ErrNoRows) {
		return notFound(what, id)
	}
	return errors.Wrapf(err, "get %s %d", what, id)
}

// placeholders returns "?, ?, ?" for n parameters.
func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.Repeat("?, ", n-1) + "?"
}

func int64Args(ids []int64) []any {
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	return args
}

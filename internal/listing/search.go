package listing

import (
	"slices"
	"strings"
	"time"
)

// Fields extracts the searchable text of an item.
type Fields[T any] []func(T) string

// Search keeps the items where any field contains term, ignoring case.
// The term is used as typed, surrounding spaces included. An empty term keeps
// everything. The input slice is not modified.
func Search[T any](items []T, term string, fields Fields[T]) []T {
	term = strings.ToLower(term)
	out := make([]T, 0, len(items))
	if term == "" {
		return append(out, items...)
	}
	for _, item := range items {
		for _, field := range fields {
			if strings.Contains(strings.ToLower(field(item)), term) {
				out = append(out, item)
				break
			}
		}
	}
	return out
}

// NewestFirst returns a copy ordered by creation time, newest first. Items
// created at the same instant keep their relative order.
func NewestFirst[T any](items []T, createdAt func(T) time.Time) []T {
	out := slices.Clone(items)
	slices.SortStableFunc(out, func(a, b T) int {
		return createdAt(b).Compare(createdAt(a))
	})
	return out
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

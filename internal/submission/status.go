package submission

import (
	"log/slog"
	"regexp"
	"strings"
)

// Status is the lifecycle bucket of a submission.
type Status string

const (
	StatusInbox     Status = "inbox"
	StatusAccepted  Status = "accepted"
	StatusCompleted Status = "completed"
	StatusTrash     Status = "trash"
)

// Statuses lists every bucket in display order.
var Statuses = []Status{StatusInbox, StatusAccepted, StatusCompleted, StatusTrash}

// statusSynonyms maps normalized free-form status strings onto the enum.
// Keys are produced by Normalize.
var statusSynonyms = map[string]Status{
	"":                StatusInbox,
	"inbox":           StatusInbox,
	"new":             StatusInbox,
	"pending":         StatusInbox,
	"accepted":        StatusAccepted,
	"accept":          StatusAccepted,
	"completed":       StatusCompleted,
	"complete":        StatusCompleted,
	"done":            StatusCompleted,
	"trash":           StatusTrash,
	"deleted":         StatusTrash,
	"deleted-by-user": StatusTrash,
}

// whitespaceRegex matches one or more whitespace characters
var whitespaceRegex = regexp.MustCompile(`\s+`)

// Normalize trims, lowercases and collapses internal whitespace to single spaces.
func Normalize(s string) string {
	s = strings.TrimSpace(s)
	s = strings.ToLower(s)
	return whitespaceRegex.ReplaceAllString(s, " ")
}

// ParseStatus looks s up in the synonym table.
// The second result is false when s is not a known status or synonym.
func ParseStatus(s string) (Status, bool) {
	st, ok := statusSynonyms[Normalize(s)]
	return st, ok
}

// NormalizeStatus maps s onto the enum, falling back to inbox for unknown values.
func NormalizeStatus(s string) Status {
	st, ok := ParseStatus(s)
	if !ok {
		slog.Warn("unknown submission status, treating as inbox", "status", s)
		return StatusInbox
	}
	return st
}

// Valid reports whether s is one of the four canonical statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusInbox, StatusAccepted, StatusCompleted, StatusTrash:
		return true
	}
	return false
}

// Label returns the display name of the bucket.
func (s Status) Label() string {
	switch s {
	case StatusInbox:
		return "Inbox"
	case StatusAccepted:
		return "Accepted"
	case StatusCompleted:
		return "Completed"
	case StatusTrash:
		return "Trash"
	}
	return string(s)
}

// Package guard enforces the read-only, bounded-result contract on SQL text
// before it reaches the database.
package guard

import (
	"fmt"
	"strings"

	"github.com/kyleking/askdb/internal/errors"
)

// DefaultMaxRows is the row cap appended to queries without a LIMIT
const DefaultMaxRows = 1000

// Query is SQL text that passed Check
type Query string

func (q Query) String() string {
	return string(q)
}

// bannedTokens are rejected when they appear alongside a statement separator
var bannedTokens = []string{
	" drop ", " delete ", " insert ", " update ", " alter ", " create ",
	"--", "/*", "*/",
}

// Check validates sql and appends a row cap when no limit is present.
// It is a text heuristic rather than a parser: a statement separator and a
// banned token must both be present for rejection. Check is idempotent.
func Check(sql string, maxRows int) (Query, error) {
	if maxRows <= 0 {
		maxRows = DefaultMaxRows
	}

	text := strings.TrimSpace(strings.TrimRight(sql, "; \t\r\n"))
	lowered := strings.ToLower(text)

	if text == "" {
		return "", errors.NewUnsafeQueryError("query is empty")
	}

	if !strings.HasPrefix(lowered, "select") {
		return "", errors.NewUnsafeQueryError("only SELECT queries are allowed")
	}

	spaced := normalize(lowered)

	if strings.Contains(lowered, ";") {
		for _, token := range bannedTokens {
			if strings.Contains(spaced, token) {
				return "", errors.NewUnsafeQueryError(
					fmt.Sprintf("potentially unsafe SQL detected: %q", strings.TrimSpace(token)))
			}
		}
	}

	if !strings.Contains(strings.Join(strings.Fields(lowered), " "), "limit ") {
		text = fmt.Sprintf("%s%sLIMIT %d", text, capSeparator(text), maxRows)
	}

	return Query(text), nil
}

// normalize collapses whitespace runs and pads separators so tokens like
// "drop" are found after ";drop" or a newline
func normalize(lowered string) string {
	padded := strings.ReplaceAll(lowered, ";", " ; ")
	return " " + strings.Join(strings.Fields(padded), " ") + " "
}

// capSeparator puts the cap on its own line when the last line holds a
// line comment that would otherwise swallow it
func capSeparator(text string) string {
	lastLine := text[strings.LastIndex(text, "\n")+1:]
	if strings.Contains(lastLine, "--") {
		return "\n"
	}

	return " "
}

// IsUnsafe reports whether err is a guard rejection
func IsUnsafe(err error) bool {
	return errors.IsType(err, errors.ErrTypeUnsafeQuery)
}

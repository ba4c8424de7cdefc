package llm

import (
	"fmt"
	"regexp"
	"strings"
)

// SystemPrompt instructs the model to answer with SQLite SQL only
const SystemPrompt = `You are a helpful assistant that converts natural language questions into **SQLite SQL**.
- Output **ONLY** a valid SQL query, with no prose, backticks, or explanations.
- The database is SQLite.
- Use only the tables and columns provided.
- Prefer simple SELECT statements.
- LIMIT results if not specified.`

// UserPrompt renders the schema and question for the model
func UserPrompt(req Request) string {
	return fmt.Sprintf("Schema:\n%s\n\nQuestion: %s\n\nReturn ONLY SQL. SQLite dialect.\n",
		req.SchemaSummary, req.Question)
}

var (
	leadingFence  = regexp.MustCompile("(?i)^```(?:sql)?\\s*")
	trailingFence = regexp.MustCompile("\\s*```$")
)

// StripCodeFence removes a leading ```sql fence and a trailing ``` fence
func StripCodeFence(text string) string {
	text = strings.TrimSpace(text)
	text = leadingFence.ReplaceAllString(text, "")
	text = trailingFence.ReplaceAllString(text, "")

	return strings.TrimSpace(text)
}

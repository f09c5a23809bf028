package rag

import "strings"

// FormatContext wraps the winning passage in the context block handed to the generator.
func FormatContext(text string) string {
	return "Context:\n" + text + "\n"
}

// BuildPrompt fills {context} and {query} in template. Substitution is a
// single pass, so placeholders inside the inserted values are left alone.
func BuildPrompt(template, context, query string) string {
	return strings.NewReplacer("{context}", context, "{query}", query).Replace(template)
}

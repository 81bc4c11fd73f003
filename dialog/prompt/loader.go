package prompt

import (
	_ "embed"
	"strings"
)

//go:embed template/classifier.txt
var classifierRaw string

// Classifier returns the system prompt for the LLM-backed utterance
// classifier. Safe to call concurrently; the embed is compile-time.
func Classifier() string {
	return strings.TrimSpace(classifierRaw)
}

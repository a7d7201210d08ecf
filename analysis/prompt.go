package analysis

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/poiesic/logsage/core"
)

// SystemPrompt frames every reasoning call.
const SystemPrompt = "You are an incident debugging assistant. " +
	"You MUST only make claims supported by the provided evidence. " +
	"If evidence is insufficient, say so and set confidence to 'low'. " +
	"Output MUST be concise, actionable, and include citations by chunk_id."

const evidenceSeparator = "\n\n---\n\n"

const responseFormat = `Respond with a single JSON object and nothing else:
{
  "summary": "1-3 sentences",
  "root_cause": "1-2 sentences",
  "confidence": "low|medium|high",
  "citations": ["chunk_id", ...],
  "next_steps": ["3-7 short actions"]
}`

const strictInstruction = `Your previous reply could not be parsed.
Reply with ONLY the JSON object described above. No markdown fences, no prose, no trailing commas.
Every key and string must be double-quoted. Cite only chunk ids that appear in the evidence.`

// buildPrompt assembles the user prompt from the question, prior turns and
// evidence. strict appends the stricter retry instruction.
func buildPrompt(question string, history []core.Turn, results []*core.SearchResult, strict bool) string {
	var b strings.Builder

	if len(history) > 0 {
		b.WriteString("Conversation so far:\n")
		for _, turn := range history {
			fmt.Fprintf(&b, "Q: %s\nA: %s\n", turn.Question, turn.Answer)
		}
		b.WriteString("\n")
	}

	fmt.Fprintf(&b, "Question:\n%s\n\n", question)

	b.WriteString("Evidence:\n")
	if len(results) == 0 {
		b.WriteString("(no evidence retrieved)")
	} else {
		b.WriteString(formatEvidence(results))
	}
	b.WriteString("\n\n")

	b.WriteString(responseFormat)
	if strict {
		b.WriteString("\n\n")
		b.WriteString(strictInstruction)
	}
	return b.String()
}

// formatEvidence renders each result as "[chunk_id | filename]" followed by
// its text.
func formatEvidence(results []*core.SearchResult) string {
	blocks := make([]string, 0, len(results))
	for _, r := range results {
		blocks = append(blocks, fmt.Sprintf("[%s | %s]\n%s", r.Record.ChunkID, r.Record.Filename, r.Record.Text))
	}
	return strings.Join(blocks, evidenceSeparator)
}

// truncateQuote cuts text to limit characters and marks the cut with "...".
func truncateQuote(text string, limit int) string {
	if utf8.RuneCountInString(text) <= limit {
		return text
	}
	runes := []rune(text)
	return string(runes[:limit]) + "..."
}

// historyAnswer condenses a result into the text stored as the turn answer.
func historyAnswer(result *core.AnalysisResult) string {
	if result.RootCause == "" {
		return result.Summary
	}
	return result.Summary + " Root cause: " + result.RootCause
}

package analysis

import (
	"fmt"
	"strings"

	"github.com/poiesic/logsage/core"
	"github.com/valyala/fastjson"
)

// modelAnswer is the parsed form of a reasoning reply.
type modelAnswer struct {
	Summary   string
	RootCause string
	Citations []string
	NextSteps []string

	Confidence    core.Confidence
	HasConfidence bool
}

// outcome is the result of one synthesis attempt: success, retryable or
// fallback.
type outcome interface {
	outcome()
}

type success struct {
	answer *modelAnswer
}

type retryable struct {
	err error
}

type fallback struct {
	reason error
}

func (success) outcome()   {}
func (retryable) outcome() {}
func (fallback) outcome()  {}

// classify turns a raw reply into an outcome. A malformed reply on the
// final attempt becomes a fallback.
func classify(raw string, final bool) outcome {
	answer, err := parseAnswer(raw)
	if err == nil {
		return success{answer: answer}
	}
	if final {
		return fallback{reason: err}
	}
	return retryable{err: err}
}

// parseAnswer extracts a modelAnswer from raw model output. It tolerates
// markdown fences, prose around the object, and unquoted keys.
func parseAnswer(raw string) (*modelAnswer, error) {
	candidate := extractObject(stripFences(raw))
	if candidate == "" {
		return nil, fmt.Errorf("%w: no JSON object found", ErrMalformedResponse)
	}

	var p fastjson.Parser
	v, err := p.Parse(candidate)
	if err != nil {
		v, err = p.Parse(repairJSON(candidate))
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrMalformedResponse, err)
		}
	}
	if v.Type() != fastjson.TypeObject {
		return nil, fmt.Errorf("%w: top-level value is %s", ErrMalformedResponse, v.Type())
	}

	answer := &modelAnswer{
		Summary:   firstString(v, "summary", "answer"),
		RootCause: firstString(v, "root_cause", "probable_root_cause", "rootCause"),
		NextSteps: stringList(v.Get("next_steps")),
	}
	if answer.Summary == "" {
		return nil, fmt.Errorf("%w: missing summary", ErrMalformedResponse)
	}
	if len(answer.NextSteps) == 0 {
		answer.NextSteps = stringList(v.Get("nextSteps"))
	}

	answer.Citations = citationList(v.Get("citations"))
	if len(answer.Citations) == 0 {
		answer.Citations = citationList(v.Get("evidence"))
	}

	answer.Confidence, answer.HasConfidence = parseConfidence(firstString(v, "confidence"))
	return answer, nil
}

func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		s = s[nl+1:]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

// extractObject returns the text from the first '{' to the last '}'.
func extractObject(s string) string {
	start := strings.IndexByte(s, '{')
	end := strings.LastIndexByte(s, '}')
	if start < 0 || end <= start {
		return ""
	}
	return s[start : end+1]
}

func firstString(v *fastjson.Value, keys ...string) string {
	for _, key := range keys {
		field := v.Get(key)
		if field == nil || field.Type() != fastjson.TypeString {
			continue
		}
		if s := strings.TrimSpace(string(field.GetStringBytes())); s != "" {
			return s
		}
	}
	return ""
}

// stringList accepts an array of strings or a single newline separated
// string.
func stringList(v *fastjson.Value) []string {
	if v == nil {
		return nil
	}
	var out []string
	switch v.Type() {
	case fastjson.TypeArray:
		for _, item := range v.GetArray() {
			if item.Type() != fastjson.TypeString {
				continue
			}
			if s := strings.TrimSpace(string(item.GetStringBytes())); s != "" {
				out = append(out, s)
			}
		}
	case fastjson.TypeString:
		for _, line := range strings.Split(string(v.GetStringBytes()), "\n") {
			line = strings.TrimSpace(strings.TrimLeft(line, "-*• "))
			if line != "" {
				out = append(out, line)
			}
		}
	}
	return out
}

// citationList accepts ids as strings or objects carrying a chunk_id.
func citationList(v *fastjson.Value) []string {
	if v == nil || v.Type() != fastjson.TypeArray {
		return nil
	}
	var out []string
	for _, item := range v.GetArray() {
		var id string
		switch item.Type() {
		case fastjson.TypeString:
			id = string(item.GetStringBytes())
		case fastjson.TypeObject:
			id = string(item.GetStringBytes("chunk_id"))
		}
		id = strings.Trim(strings.TrimSpace(id), "[]")
		if id != "" {
			out = append(out, id)
		}
	}
	return out
}

func parseConfidence(s string) (core.Confidence, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "high":
		return core.ConfidenceHigh, true
	case "medium", "med", "moderate":
		return core.ConfidenceMedium, true
	case "low":
		return core.ConfidenceLow, true
	}
	return core.ConfidenceLow, false
}

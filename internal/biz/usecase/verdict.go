package usecase

import (
	"encoding/json"
	"fmt"
	"strings"

	"chatwarden/internal/biz/domain"
)

// verdictPayload is the JSON contract the oracle is instructed to return.
type verdictPayload struct {
	Violations []domain.Violation `json:"violations"`
}

// ParseVerdict turns a raw oracle response into a Verdict. Models often wrap
// JSON in code fences or prose, so parsing tries the whole response first,
// then a fenced block, then the outermost brace span. Anything that still
// fails to parse is a ParseFailure, never a crash or a half-filled verdict.
func ParseVerdict(raw string) domain.Verdict {
	candidates := []string{strings.TrimSpace(raw)}
	if extracted, ok := extractFenced(raw); ok {
		candidates = append(candidates, extracted)
	}
	if extracted, ok := extractBraces(raw); ok {
		candidates = append(candidates, extracted)
	}

	for _, candidate := range candidates {
		if candidate == "" {
			continue
		}
		var payload verdictPayload
		if err := json.Unmarshal([]byte(candidate), &payload); err != nil {
			continue
		}
		violations := payload.Violations[:0]
		for _, v := range payload.Violations {
			if strings.TrimSpace(v.UserID) == "" {
				continue
			}
			violations = append(violations, v)
		}
		if len(violations) == 0 {
			return domain.Verdict{Kind: domain.VerdictNoViolation, Raw: raw}
		}
		return domain.Verdict{Kind: domain.VerdictViolations, Violations: violations, Raw: raw}
	}

	fmt.Printf("[Verdict] Failed to parse oracle response: %s\n", truncate(raw, 200))
	return domain.Verdict{Kind: domain.VerdictParseFailure, Raw: raw}
}

func extractFenced(s string) (string, bool) {
	start := strings.Index(s, "```json")
	offset := 7
	if start < 0 {
		start = strings.Index(s, "```")
		offset = 3
	}
	if start < 0 {
		return "", false
	}
	rest := s[start+offset:]
	end := strings.Index(rest, "```")
	if end < 0 {
		return "", false
	}
	return strings.TrimSpace(rest[:end]), true
}

func extractBraces(s string) (string, bool) {
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end <= start {
		return "", false
	}
	return s[start : end+1], true
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

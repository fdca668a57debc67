package oracle

import (
	"strings"
	"testing"
)

func TestBuildReviewPrompt(t *testing.T) {
	prompt := BuildReviewPrompt("1. No spam", "", "[1001|alice] 12:00:00: hi")

	if !strings.Contains(prompt, "1. No spam") {
		t.Error("prompt missing rule list")
	}
	if !strings.Contains(prompt, "[1001|alice] 12:00:00: hi") {
		t.Error("prompt missing transcript")
	}
	if !strings.Contains(prompt, RequiredJSONFormat) {
		t.Error("prompt missing the JSON output contract")
	}
	if strings.Contains(prompt, "Additional custom rules") {
		t.Error("custom-rules section present without custom rules")
	}
}

func TestBuildReviewPromptWithCustomRules(t *testing.T) {
	prompt := BuildReviewPrompt("1. No spam", "5. No politics", "transcript here")

	if !strings.Contains(prompt, "Additional custom rules:\n5. No politics") {
		t.Error("custom rules not appended after defaults")
	}
	if strings.Index(prompt, "1. No spam") > strings.Index(prompt, "5. No politics") {
		t.Error("default rules should precede custom rules")
	}
}

func TestNewClientDefaults(t *testing.T) {
	c := NewClient("sk-test", "", "", 0)
	if c.model == "" {
		t.Error("model default not applied")
	}
	if c.timeout != defaultTimeout {
		t.Errorf("timeout = %v, want %v", c.timeout, defaultTimeout)
	}
}

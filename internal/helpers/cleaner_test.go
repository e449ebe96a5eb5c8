package helpers

import (
	"strings"
	"testing"
)

func TestExtractJSONPlainObject(t *testing.T) {
	out, err := ExtractJSON(`{"a":1,"b":[2,3]}`)
	if err != nil {
		t.Fatalf("ExtractJSON: %v", err)
	}
	if out != `{"a":1,"b":[2,3]}` {
		t.Fatalf("unexpected payload: %s", out)
	}
}

func TestExtractJSONFenced(t *testing.T) {
	raw := "```json\n{\"insights\": []}\n```"
	out, err := ExtractJSON(raw)
	if err != nil {
		t.Fatalf("ExtractJSON: %v", err)
	}
	if out != `{"insights": []}` {
		t.Fatalf("unexpected payload: %s", out)
	}
}

func TestExtractJSONSurroundingProse(t *testing.T) {
	raw := "Here is the analysis you asked for:\n{\"score\": 0.8}\nLet me know if you need more."
	out, err := ExtractJSON(raw)
	if err != nil {
		t.Fatalf("ExtractJSON: %v", err)
	}
	if out != `{"score": 0.8}` {
		t.Fatalf("unexpected payload: %s", out)
	}
}

func TestExtractJSONIgnoresBracesInStrings(t *testing.T) {
	raw := `{"title":"a {weird} title","n":1}`
	out, err := ExtractJSON(raw)
	if err != nil {
		t.Fatalf("ExtractJSON: %v", err)
	}
	if out != raw {
		t.Fatalf("unexpected payload: %s", out)
	}
}

func TestExtractJSONTruncatedResponse(t *testing.T) {
	if _, err := ExtractJSON("```json {\"broken\""); err == nil {
		t.Fatalf("expected error for truncated payload")
	}
}

func TestDecodeLLMJSON(t *testing.T) {
	var v struct {
		Insights []struct {
			Title string `json:"title"`
		} `json:"insights"`
	}
	raw := "```json\n{\"insights\":[{\"title\":\"demand spike\"}]}\n```"
	if err := DecodeLLMJSON(raw, &v); err != nil {
		t.Fatalf("DecodeLLMJSON: %v", err)
	}
	if len(v.Insights) != 1 || v.Insights[0].Title != "demand spike" {
		t.Fatalf("unexpected decode result: %+v", v)
	}
}

func TestDecodeLLMJSONMalformed(t *testing.T) {
	var v map[string]any
	err := DecodeLLMJSON(strings.Repeat("garbage ", 10), &v)
	if err == nil {
		t.Fatalf("expected error for non-JSON response")
	}
}

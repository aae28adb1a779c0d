package llm

import "testing"

type parsed struct {
	Completed bool    `json:"completed"`
	Summary   string  `json:"summary"`
	Score     float64 `json:"score"`
}

func TestParseJSON_DirectParse(t *testing.T) {
	var out parsed
	if err := ParseJSON(`{"completed": true, "summary": "ok", "score": 0.8}`, &out); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !out.Completed || out.Summary != "ok" {
		t.Errorf("got %+v", out)
	}
}

func TestParseJSON_FencedBlock(t *testing.T) {
	text := "Here is my analysis:\n```json\n{\"completed\": false, \"summary\": \"needs work\", \"score\": 0.3}\n```\nLet me know if you have questions."
	var out parsed
	if err := ParseJSON(text, &out); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Completed || out.Summary != "needs work" {
		t.Errorf("got %+v", out)
	}
}

func TestParseJSON_ExtractedFromProse(t *testing.T) {
	text := "Sure thing! {\"completed\": true, \"summary\": \"done\", \"score\": 1.0} Hope that helps."
	var out parsed
	if err := ParseJSON(text, &out); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !out.Completed || out.Summary != "done" {
		t.Errorf("got %+v", out)
	}
}

func TestParseJSON_Unparseable(t *testing.T) {
	var out parsed
	if err := ParseJSON("I refuse to answer in JSON.", &out); err == nil {
		t.Fatal("expected error for unparseable text")
	}
}

package models

import "testing"

func TestEncodePayloadRoundTrip(t *testing.T) {
	text := EncodePayload("doc-1", "the first sentence")
	tag, ok := ParsePayloadTag(text)
	if !ok {
		t.Fatal("expected tag to parse")
	}
	if tag != "doc-1" {
		t.Errorf("tag=%q", tag)
	}
	if got := ParsePayloadSentence(text); got != "the first sentence" {
		t.Errorf("sentence=%q", got)
	}
}

func TestParsePayloadTag_Noise(t *testing.T) {
	cases := []string{
		"not json at all",
		`{"sentence":"no tag field"}`,
		`{"tag":""}`,
		"",
		"[1,2,3]",
	}
	for _, text := range cases {
		if _, ok := ParsePayloadTag(text); ok {
			t.Errorf("expected no tag from %q", text)
		}
	}
}

func TestParsePayloadSentence_Fallback(t *testing.T) {
	if got := ParsePayloadSentence("plain text"); got != "plain text" {
		t.Errorf("got %q", got)
	}
}

package models

import "encoding/json"

// Payload is the JSON object stored as a record's text. The tag field is
// advisory metadata used during candidate generation; the store's own tag
// index remains authoritative for bag fetches.
type Payload struct {
	Tag      string `json:"tag"`
	Sentence string `json:"sentence"`
}

// EncodePayload renders the record text for a sentence belonging to tag.
func EncodePayload(tag, sentence string) string {
	data, _ := json.Marshal(Payload{Tag: tag, Sentence: sentence})
	return string(data)
}

// ParsePayloadTag extracts the advisory tag from a record's text. The second
// return value is false when the text is not a payload object or carries no
// tag; callers treat that as metadata noise, not an error.
func ParsePayloadTag(text string) (string, bool) {
	var p Payload
	if err := json.Unmarshal([]byte(text), &p); err != nil {
		return "", false
	}
	if p.Tag == "" {
		return "", false
	}
	return p.Tag, true
}

// ParsePayloadSentence returns the sentence from a record's text, falling
// back to the raw text when it is not a payload object.
func ParsePayloadSentence(text string) string {
	var p Payload
	if err := json.Unmarshal([]byte(text), &p); err != nil || p.Sentence == "" {
		return text
	}
	return p.Sentence
}

package ai

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParsePayloadValidArray(t *testing.T) {
	raw := `[{"character_name": "Emma", "content": "Hello"}, {"character_name": "Kai", "content": "Hi"}]`

	result := ParsePayload(raw, "character_name", "content")

	assert.Equal(t, ParseOk, result.Status)
	objects := result.Objects()
	assert.Len(t, objects, 2)
	assert.Equal(t, "Emma", objects[0]["character_name"])
	assert.Equal(t, "Hi", objects[1]["content"])
}

func TestParsePayloadValidObject(t *testing.T) {
	raw := `{"type": "dialogue", "emotional_state": "tense"}`

	result := ParsePayload(raw)

	assert.Equal(t, ParseOk, result.Status)
	objects := result.Objects()
	assert.Len(t, objects, 1)
	assert.Equal(t, "dialogue", objects[0]["type"])
}

func TestParsePayloadProseWrapped(t *testing.T) {
	raw := "Here is the conversation you asked for:\n" +
		`[{"character_name": "Emma", "content": "So."}]` +
		"\nLet me know if you need more."

	result := ParsePayload(raw, "character_name", "content")

	assert.Equal(t, ParseOk, result.Status)
	assert.Len(t, result.Objects(), 1)
}

func TestParsePayloadEmbeddedNewlines(t *testing.T) {
	raw := "[{\"character_name\": \"Emma\",\n\"content\": \"line one\"}]"

	result := ParsePayload(raw, "character_name")

	assert.Equal(t, ParseOk, result.Status)
	assert.Len(t, result.Objects(), 1)
}

func TestParsePayloadTruncatedArray(t *testing.T) {
	// Cut off mid-object: the first complete object must survive.
	raw := `[{"character_name": "Emma", "content": "Hello"}, {"character_name": "Kai", "conte`

	result := ParsePayload(raw, "character_name", "content")

	assert.Equal(t, ParsePartial, result.Status)
	objects := result.Objects()
	assert.Len(t, objects, 1)
	assert.Equal(t, "Emma", objects[0]["character_name"])
}

func TestParsePayloadSalvageRequiredKeys(t *testing.T) {
	// Two flat objects glued together with junk in between; only the one
	// carrying both required keys is kept.
	raw := `garbage {"character_name": "Emma", "content": "Hello"} more garbage {"note": "irrelevant"}`

	result := ParsePayload(raw, "character_name", "content")

	assert.Equal(t, ParsePartial, result.Status)
	objects := result.Objects()
	assert.Len(t, objects, 1)
	assert.Equal(t, "Emma", objects[0]["character_name"])
	assert.Equal(t, 1, result.Dropped)
}

func TestParsePayloadHopeless(t *testing.T) {
	result := ParsePayload("I could not generate a response this time.")

	assert.Equal(t, ParseFailed, result.Status)
	assert.Empty(t, result.Objects())
}

func TestParsePayloadFailedIsNotEmpty(t *testing.T) {
	// A failed parse must stay distinguishable from a successful parse of an
	// empty array.
	failed := ParsePayload("no json here")
	empty := ParsePayload("[]")

	assert.Equal(t, ParseFailed, failed.Status)
	assert.Equal(t, ParseOk, empty.Status)
	assert.Empty(t, empty.Objects())
}

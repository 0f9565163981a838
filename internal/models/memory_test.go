package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMemoryKeyPointRoundTrip(t *testing.T) {
	var m Memory
	m.SetKeyPoints([]string{"found the key", "heard a voice"})

	assert.Equal(t, []string{"found the key", "heard a voice"}, m.KeyPointList())
}

func TestMemoryKeyPointListLegacyText(t *testing.T) {
	m := Memory{KeyPoints: "a single remembered line"}
	assert.Equal(t, []string{"a single remembered line"}, m.KeyPointList())

	empty := Memory{}
	assert.Nil(t, empty.KeyPointList())
}

func TestMemoryMarshalFlattensColumns(t *testing.T) {
	var m Memory
	m.ID = "m1"
	m.SetKeyPoints([]string{"one", "two"})
	m.SetRelatedCharacters([]string{"c2"})

	data, err := json.Marshal(m)
	assert.NoError(t, err)

	var out map[string]any
	assert.NoError(t, json.Unmarshal(data, &out))
	assert.Equal(t, []any{"one", "two"}, out["key_points"])
	assert.Equal(t, []any{"c2"}, out["related_characters"])
}

func TestNormalizeInteractionType(t *testing.T) {
	cases := map[string]string{
		"dialogue":      "dialogue",
		"narrative":     "narration",
		"description":   "narration",
		"environmental": "narration",
		"movement":      "action",
		"gesture":       "action",
		"physical":      "action",
		"thought":       "thought",
		"":              "dialogue",
		"shrug":         "dialogue",
	}
	for in, want := range cases {
		assert.Equal(t, want, NormalizeInteractionType(in), "input %q", in)
	}
}

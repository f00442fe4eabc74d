package decode

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type payload struct {
	ReceiverID string   `json:"receiverId"`
	Text       string   `json:"text"`
	Count      int      `json:"count"`
	Tags       []string `json:"tags"`
}

func TestMapStrict(t *testing.T) {
	cases := []struct {
		name    string
		in      map[string]any
		wantErr bool
	}{
		{name: "ok", in: map[string]any{"receiverId": "a", "text": "hi", "count": float64(2)}},
		{name: "number for string", in: map[string]any{"text": float64(3)}, wantErr: true},
		{name: "object for string", in: map[string]any{"receiverId": map[string]any{"$gt": ""}}, wantErr: true},
		{name: "fraction for int", in: map[string]any{"count": 1.5}, wantErr: true},
		{name: "slice for string", in: map[string]any{"receiverId": []string{"a", "b"}}, wantErr: true},
		{name: "extra keys ignored", in: map[string]any{"text": "x", "conversationId": "c"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Map[payload](tc.in)
			if tc.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestMapErrorUnused(t *testing.T) {
	_, err := Map[payload](map[string]any{"text": "x", "other": 1.0}, Options{ErrorUnused: true})
	assert.Error(t, err)
}

func TestJSON(t *testing.T) {
	p, err := JSON[payload]([]byte(`{"receiverId":"r","text":"hello","tags":"one"}`))
	require.NoError(t, err)
	assert.Equal(t, "r", p.ReceiverID)
	assert.Equal(t, []string{"one"}, p.Tags)

	_, err = JSON[payload]([]byte(`"just a string"`))
	assert.Error(t, err)

	_, err = JSON[payload](nil)
	assert.Error(t, err)
}

func TestValues(t *testing.T) {
	m := Values(url.Values{"userId": {"a"}, "dup": {"x", "y"}, "none": {}})
	assert.Equal(t, "a", m["userId"])
	assert.Equal(t, []string{"x", "y"}, m["dup"])
	_, ok := m["none"]
	assert.False(t, ok)
}

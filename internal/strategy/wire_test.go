package strategy

import (
	"encoding/json"
	"fmt"
	"strings"
	"testing"

	"github.com/jonathan/markitup/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestDecodeSections(t *testing.T) {
	raw := json.RawMessage(`{
		"zeta": {"title": "Z", "content": "z", "key_points": null},
		"alpha": {"title": "A", "content": "a", "recommendations": ["r1", "r2"]}
	}`)

	sections, err := decodeSections(raw)

	require.NoError(t, err)
	assert.Equal(t, []string{"zeta", "alpha"}, sections.Keys())
	assert.Nil(t, sections[0].KeyPoints)
	assert.Equal(t, []string{"r1", "r2"}, sections[1].Recommendations)
}

func TestDecodeSections_RejectsNonObject(t *testing.T) {
	_, err := decodeSections(json.RawMessage(`["a", "b"]`))
	assert.Error(t, err)
}

func TestGenerateResponse_HasStrategy(t *testing.T) {
	tests := []struct {
		name string
		body string
		want bool
	}{
		{name: "absent", body: `{"success": true}`, want: false},
		{name: "null", body: `{"success": true, "strategy": null}`, want: false},
		{name: "empty object", body: `{"success": true, "strategy": {}}`, want: true},
		{name: "populated", body: `{"success": true, "strategy": {"a": {"title": "A", "content": "a"}}}`, want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var resp generateResponse
			require.NoError(t, json.Unmarshal([]byte(tt.body), &resp))
			assert.Equal(t, tt.want, resp.hasStrategy())
		})
	}
}

func TestNewGenerateRequest_Defaults(t *testing.T) {
	wire := newGenerateRequest(types.StrategyRequest{CompanyName: "Acme"})
	assert.Equal(t, 0.0, wire.Budget)
	assert.Equal(t, types.DefaultTimeline, wire.Timeline)
	assert.Equal(t, "Acme", wire.CompanyName)
}

func TestProperty_DecodeSectionsKeepsPayloadOrder(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		keys := rapid.SliceOfNDistinct(rapid.StringMatching(`[a-z_]{1,12}`), 1, 20, rapid.ID[string]).Draw(t, "keys")

		parts := make([]string, 0, len(keys))
		for i, key := range keys {
			parts = append(parts, fmt.Sprintf(`%q: {"title": "T%d", "content": "C%d"}`, key, i, i))
		}
		raw := json.RawMessage("{" + strings.Join(parts, ",") + "}")

		sections, err := decodeSections(raw)
		if err != nil {
			t.Fatalf("decode failed: %v", err)
		}
		if got := sections.Keys(); !equalStrings(got, keys) {
			t.Fatalf("order changed: got %v, want %v", got, keys)
		}
		for i, section := range sections {
			if section.Title != fmt.Sprintf("T%d", i) {
				t.Fatalf("section %d has title %q", i, section.Title)
			}
		}
	})
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

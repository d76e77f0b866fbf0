package strategy

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/jonathan/markitup/internal/types"
)

// generateRequest is the snake_case body of POST /strategies/generate/.
// Budget and Timeline are always present on the wire.
type generateRequest struct {
	CompanyName      string  `json:"company_name"`
	Industry         string  `json:"industry"`
	TargetAudience   string  `json:"target_audience"`
	StrategicFocus   string  `json:"strategic_focus"`
	Budget           float64 `json:"budget"`
	Timeline         string  `json:"timeline"`
	BrandInspiration string  `json:"brand_inspiration"`
	StrategyType     string  `json:"strategy_type"`
}

// newGenerateRequest maps a request to its wire form. Only the two optional
// fields are defaulted; required fields are sent as given.
func newGenerateRequest(req types.StrategyRequest) generateRequest {
	timeline := req.Timeline
	if timeline == "" {
		timeline = types.DefaultTimeline
	}
	return generateRequest{
		CompanyName:      req.CompanyName,
		Industry:         req.Industry,
		TargetAudience:   req.TargetAudience,
		StrategicFocus:   req.StrategicFocus,
		Budget:           req.Budget,
		Timeline:         timeline,
		BrandInspiration: req.BrandInspiration,
		StrategyType:     req.StrategyType,
	}
}

// generateResponse is the envelope returned by the backend.
type generateResponse struct {
	Success  bool            `json:"success"`
	Error    string          `json:"error,omitempty"`
	Strategy json.RawMessage `json:"strategy,omitempty"`
}

// wireSection is one entry of the remote strategy mapping.
type wireSection struct {
	Title           string   `json:"title"`
	Content         string   `json:"content"`
	KeyPoints       []string `json:"key_points"`
	Recommendations []string `json:"recommendations"`
}

// hasStrategy reports whether the strategy field is present and not null.
func (r *generateResponse) hasStrategy() bool {
	trimmed := bytes.TrimSpace(r.Strategy)
	return len(trimmed) > 0 && !bytes.Equal(trimmed, []byte("null"))
}

// decodeSections decodes the remote strategy object keeping the key order of
// the payload. A repeated key keeps its first position and its last value.
func decodeSections(raw json.RawMessage) (types.Sections, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))

	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("failed to read strategy: %w", err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, fmt.Errorf("strategy must be an object")
	}

	var sections types.Sections
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("failed to read section key: %w", err)
		}
		key, ok := keyTok.(string)
		if !ok {
			return nil, fmt.Errorf("unexpected section key %v", keyTok)
		}

		var ws wireSection
		if err := dec.Decode(&ws); err != nil {
			return nil, fmt.Errorf("failed to decode section %q: %w", key, err)
		}

		sections = sections.Set(types.StrategySection{
			Key:             key,
			Title:           ws.Title,
			Content:         ws.Content,
			KeyPoints:       ws.KeyPoints,
			Recommendations: ws.Recommendations,
		})
	}

	if _, err := dec.Token(); err != nil {
		return nil, fmt.Errorf("failed to close strategy object: %w", err)
	}
	return sections, nil
}

// Package types provides type definitions for structured data used throughout the markitup system.
//
//nolint:revive // types is a standard Go package name pattern
package types

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// DefaultTimeline is used on the wire when a request carries no timeline.
const DefaultTimeline = "Not specified"

// Source records where a strategy document came from.
type Source string

const (
	// SourceRemote is a document normalized from the generation backend
	SourceRemote Source = "remote"
	// SourceFallback is a document built locally after a failed remote call
	SourceFallback Source = "fallback"
	// SourceUserCustomized is a document edited by the user (terminal)
	SourceUserCustomized Source = "user-customized"
)

// ErrCustomized is returned when automated regeneration is attempted on a
// user-customized document.
var ErrCustomized = errors.New("strategy document was customized by the user and cannot be regenerated")

// ErrEmptySections is returned when a customization carries no sections.
var ErrEmptySections = errors.New("strategy document must contain at least one section")

// ErrInvalidSectionKey is returned when a customization carries a blank or
// repeated section key.
var ErrInvalidSectionKey = errors.New("invalid section key")

// StrategyRequest holds the business context for one generation.
// Budget and Timeline are optional; every other field is required.
type StrategyRequest struct {
	CompanyName      string  `json:"company_name" validate:"required"`
	Industry         string  `json:"industry" validate:"required"`
	TargetAudience   string  `json:"target_audience" validate:"required"`
	StrategicFocus   string  `json:"strategic_focus" validate:"required"`
	Budget           float64 `json:"budget,omitempty" validate:"gte=0"`
	Timeline         string  `json:"timeline,omitempty"`
	BrandInspiration string  `json:"brand_inspiration" validate:"required"`
	StrategyType     string  `json:"strategy_type" validate:"required"`
}

// Validate validates the StrategyRequest using the validator.
func (r *StrategyRequest) Validate() error {
	validate := validator.New()
	return validate.Struct(r)
}

// StrategySection is a named block of generated content.
type StrategySection struct {
	Key             string   `json:"key"`
	Title           string   `json:"title"`
	Content         string   `json:"content"`
	KeyPoints       []string `json:"key_points"`
	Recommendations []string `json:"recommendations"`
}

// Sections is an ordered mapping from section key to section.
// Order is significant: rendering concatenates sections in slice order.
type Sections []StrategySection

// Keys returns the section keys in order.
func (s Sections) Keys() []string {
	keys := make([]string, 0, len(s))
	for _, section := range s {
		keys = append(keys, section.Key)
	}
	return keys
}

// Get returns the section stored under key.
func (s Sections) Get(key string) (StrategySection, bool) {
	for _, section := range s {
		if section.Key == key {
			return section, true
		}
	}
	return StrategySection{}, false
}

// Set replaces the section under its key, keeping its position, or appends it.
func (s Sections) Set(section StrategySection) Sections {
	for i := range s {
		if s[i].Key == section.Key {
			s[i] = section
			return s
		}
	}
	return append(s, section)
}

// checkKeys reports the first blank or repeated key.
func (s Sections) checkKeys() error {
	seen := make(map[string]int, len(s))
	for i, section := range s {
		if strings.TrimSpace(section.Key) == "" {
			return fmt.Errorf("%w: section %d has no key", ErrInvalidSectionKey, i+1)
		}
		if first, dup := seen[section.Key]; dup {
			return fmt.Errorf("%w: %q used by sections %d and %d", ErrInvalidSectionKey, section.Key, first+1, i+1)
		}
		seen[section.Key] = i
	}
	return nil
}

// normalized returns a copy whose list fields are never nil.
func (s Sections) normalized() Sections {
	out := make(Sections, len(s))
	for i, section := range s {
		if section.KeyPoints == nil {
			section.KeyPoints = []string{}
		}
		if section.Recommendations == nil {
			section.Recommendations = []string{}
		}
		out[i] = section
	}
	return out
}

// StrategyMetadata describes the provenance of a document.
type StrategyMetadata struct {
	Brand          string          `json:"brand"`
	StrategyType   string          `json:"strategy_type"`
	Context        StrategyRequest `json:"context"`
	GeneratedAt    time.Time       `json:"generated_at"`
	Source         Source          `json:"source"`
	FallbackReason string          `json:"fallback_reason,omitempty"`
}

// StrategyDocument is the normalized output of a generation.
type StrategyDocument struct {
	ID       uuid.UUID        `json:"id"`
	Sections Sections         `json:"sections"`
	Metadata StrategyMetadata `json:"metadata"`
}

// NewStrategyDocument builds a document for req with a fresh ID.
func NewStrategyDocument(req StrategyRequest, sections Sections, source Source, generatedAt time.Time) *StrategyDocument {
	return &StrategyDocument{
		ID:       uuid.New(),
		Sections: sections.normalized(),
		Metadata: StrategyMetadata{
			Brand:        req.BrandInspiration,
			StrategyType: req.StrategyType,
			Context:      req,
			GeneratedAt:  generatedAt.UTC(),
			Source:       source,
		},
	}
}

// CanRegenerate reports whether automated regeneration may replace the document.
func (d *StrategyDocument) CanRegenerate() bool {
	return d.Metadata.Source != SourceUserCustomized
}

// Customize returns the user-edited replacement of d. The ID and the business
// context are kept; sections are replaced wholesale.
func (d *StrategyDocument) Customize(sections Sections, editedAt time.Time) (*StrategyDocument, error) {
	if len(sections) == 0 {
		return nil, ErrEmptySections
	}
	if err := sections.checkKeys(); err != nil {
		return nil, err
	}
	meta := d.Metadata
	meta.GeneratedAt = editedAt.UTC()
	meta.Source = SourceUserCustomized
	meta.FallbackReason = ""
	return &StrategyDocument{
		ID:       d.ID,
		Sections: sections.normalized(),
		Metadata: meta,
	}, nil
}

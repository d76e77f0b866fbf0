package strategy

import (
	"fmt"
	"time"

	"github.com/jonathan/markitup/internal/types"
)

// Fallback section keys, in document order.
const (
	SectionExecutiveSummary   = "executive_summary"
	SectionStrategicFramework = "strategic_framework"
	SectionImplementationPlan = "implementation_plan"
)

// FallbackSections builds the fixed three-section template from the request
// fields alone. It is deterministic and never fails.
func FallbackSections(req types.StrategyRequest) types.Sections {
	return types.Sections{
		{
			Key:   SectionExecutiveSummary,
			Title: "Executive Summary",
			Content: fmt.Sprintf("%s is positioned to become a leading player in the %s industry through strategic digital marketing initiatives.",
				req.CompanyName, req.Industry),
			KeyPoints: []string{
				fmt.Sprintf("Strong market opportunity in %s", req.Industry),
				"Clear competitive advantages identified",
				"Scalable growth strategy developed",
			},
			Recommendations: []string{
				"Focus on digital-first marketing approach",
				"Implement data-driven decision making",
				"Build strong brand presence online",
			},
		},
		{
			Key:   SectionStrategicFramework,
			Title: "Strategic Framework",
			Content: fmt.Sprintf("Based on %s's proven methodology, we have developed a comprehensive marketing strategy tailored for %s in the %s industry.",
				req.BrandInspiration, req.CompanyName, req.Industry),
			KeyPoints: []string{
				fmt.Sprintf("Multi-channel approach for reaching %s", req.TargetAudience),
				"Conversion optimization tactics",
				"Customer onboarding process",
			},
			Recommendations: []string{
				fmt.Sprintf("Position %s as a %s leader", req.CompanyName, req.StrategicFocus),
				fmt.Sprintf("Target audience: %s", req.TargetAudience),
				"Unique value proposition aligned with market needs",
			},
		},
		{
			Key:     SectionImplementationPlan,
			Title:   "Implementation Plan",
			Content: "This strategy combines proven methodologies with your unique business context.",
			KeyPoints: []string{
				"90-day phased implementation approach",
				"Start with highest-impact activities",
				"Build momentum with quick wins",
			},
			Recommendations: []string{
				"Monitor performance metrics closely",
				"Iterate based on early results",
				"Scale successful initiatives",
			},
		},
	}
}

// FallbackDocument wraps FallbackSections in a document with source "fallback".
func FallbackDocument(req types.StrategyRequest, now time.Time) *types.StrategyDocument {
	return types.NewStrategyDocument(req, FallbackSections(req), types.SourceFallback, now)
}

// Package safety scores route segments and ranks candidate routes.
package safety

import (
	"strings"
	"time"
)

// Lighting is the estimated lighting along a segment.
type Lighting string

const (
	LightingWellLit Lighting = "well-lit"
	LightingPartial Lighting = "partial"
	LightingPoor    Lighting = "poor"
)

// Activity is the estimated street activity along a segment.
type Activity string

const (
	ActivityBusy     Activity = "busy"
	ActivityModerate Activity = "moderate"
	ActivityIsolated Activity = "isolated"
)

// RoadType is the heuristic road classification of a segment.
type RoadType string

const (
	RoadHighway  RoadType = "highway"
	RoadAlley    RoadType = "alley"
	RoadMainRoad RoadType = "main_road"
	RoadStreet   RoadType = "street"
)

// SegmentContext is the environment derived from a step instruction. It is
// also the payload sent to the ML engine, hence the JSON names.
type SegmentContext struct {
	Lighting       Lighting `json:"lighting"`
	Activity       Activity `json:"activity"`
	RoadType       RoadType `json:"roadType"`
	RoadTypeFactor float64  `json:"roadTypeFactor"`
	Timestamp      string   `json:"timestamp"`
}

// contextRule classifies an instruction containing any of its keywords.
type contextRule struct {
	keywords []string
	roadType RoadType
	factor   float64
	lighting Lighting
	activity Activity
}

func (r contextRule) matches(text string) bool {
	for _, k := range r.keywords {
		if strings.Contains(text, k) {
			return true
		}
	}
	return false
}

// contextRules are checked in order and the first match wins. "road" must be
// tested before "street" because both can appear in one instruction.
var contextRules = []contextRule{
	{
		keywords: []string{"highway", "freeway", "expressway"},
		roadType: RoadHighway,
		factor:   1.2,
		lighting: LightingWellLit,
		activity: ActivityBusy,
	},
	{
		keywords: []string{"alley", "path", "lane"},
		roadType: RoadAlley,
		factor:   0.7,
		lighting: LightingPoor,
		activity: ActivityIsolated,
	},
	{
		keywords: []string{"main road", "road"},
		roadType: RoadMainRoad,
		factor:   1.0,
		lighting: LightingPartial,
		activity: ActivityModerate,
	},
	{
		keywords: []string{"street"},
		roadType: RoadStreet,
		factor:   0.9,
		lighting: LightingPartial,
		activity: ActivityModerate,
	},
}

// defaultRule applies when no keyword matches.
var defaultRule = contextRule{
	roadType: RoadStreet,
	factor:   1.0,
	lighting: LightingPartial,
	activity: ActivityModerate,
}

// ExtractContext classifies a step instruction. The instruction may contain
// HTML; matching is on the lower-cased raw text.
func ExtractContext(instruction string, now time.Time) SegmentContext {
	text := strings.ToLower(instruction)

	rule := defaultRule
	for _, r := range contextRules {
		if r.matches(text) {
			rule = r
			break
		}
	}

	return SegmentContext{
		Lighting:       rule.lighting,
		Activity:       rule.activity,
		RoadType:       rule.roadType,
		RoadTypeFactor: rule.factor,
		Timestamp:      now.Format(time.RFC3339),
	}
}

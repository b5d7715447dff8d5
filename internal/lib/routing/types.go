package routing

import (
	"fmt"

	"github.com/strollmaps/walkbook/internal/lib/geo"
)

// StepKind classifies a navigation maneuver. Parsed once from upstream
// routing data; everything downstream switches on the enum, never on the
// raw strings.
type StepKind int

const (
	StepDepart StepKind = iota
	StepArrive
	StepTurnLeft
	StepTurnRight
	StepTurnSlightLeft
	StepTurnSlightRight
	StepTurnSharpLeft
	StepTurnSharpRight
	StepUTurn
	StepContinue
	StepRoundabout
	StepOther
)

// ParseStepKind maps an OSRM maneuver type and modifier onto a StepKind.
// Anything unrecognized lands on StepOther.
func ParseStepKind(maneuverType, modifier string) StepKind {
	switch maneuverType {
	case "depart":
		return StepDepart
	case "arrive":
		return StepArrive
	case "roundabout", "rotary":
		return StepRoundabout
	case "continue", "new name", "merge":
		if modifier == "uturn" {
			return StepUTurn
		}
		return StepContinue
	case "turn", "end of road", "fork":
		switch modifier {
		case "left":
			return StepTurnLeft
		case "right":
			return StepTurnRight
		case "slight left":
			return StepTurnSlightLeft
		case "slight right":
			return StepTurnSlightRight
		case "sharp left":
			return StepTurnSharpLeft
		case "sharp right":
			return StepTurnSharpRight
		case "uturn":
			return StepUTurn
		case "straight":
			return StepContinue
		}
		return StepOther
	}
	return StepOther
}

// IconKey returns the symbol identifier the document layer renders for
// this maneuver.
func (k StepKind) IconKey() string {
	switch k {
	case StepDepart:
		return "depart"
	case StepArrive:
		return "arrive"
	case StepTurnLeft, StepTurnSharpLeft:
		return "turn-left"
	case StepTurnRight, StepTurnSharpRight:
		return "turn-right"
	case StepTurnSlightLeft:
		return "slight-left"
	case StepTurnSlightRight:
		return "slight-right"
	case StepUTurn:
		return "uturn"
	case StepContinue:
		return "straight"
	case StepRoundabout:
		return "roundabout"
	}
	return "waypoint"
}

func (k StepKind) String() string {
	return k.IconKey()
}

// Step is a single navigation instruction along a route.
type Step struct {
	Kind            StepKind    `json:"kind"`
	Modifier        string      `json:"modifier,omitempty"`
	RoadName        string      `json:"road_name"`
	DistanceMeters  float64     `json:"distance_meters"`
	DurationSeconds float64     `json:"duration_seconds"`
	Location        geo.Point   `json:"location"`
	Geometry        []geo.Point `json:"geometry,omitempty"`
}

// Instruction renders a human-readable one-line instruction for the step.
func (s Step) Instruction() string {
	road := s.RoadName
	if road == "" {
		road = "the path"
	}
	switch s.Kind {
	case StepDepart:
		return fmt.Sprintf("Start out on %s", road)
	case StepArrive:
		return "Arrive at your destination"
	case StepTurnLeft:
		return fmt.Sprintf("Turn left onto %s", road)
	case StepTurnRight:
		return fmt.Sprintf("Turn right onto %s", road)
	case StepTurnSlightLeft:
		return fmt.Sprintf("Bear left onto %s", road)
	case StepTurnSlightRight:
		return fmt.Sprintf("Bear right onto %s", road)
	case StepTurnSharpLeft:
		return fmt.Sprintf("Make a sharp left onto %s", road)
	case StepTurnSharpRight:
		return fmt.Sprintf("Make a sharp right onto %s", road)
	case StepUTurn:
		return fmt.Sprintf("Turn around and head back along %s", road)
	case StepContinue:
		return fmt.Sprintf("Continue on %s", road)
	case StepRoundabout:
		return fmt.Sprintf("Take the roundabout to %s", road)
	}
	return fmt.Sprintf("Follow %s", road)
}

// Route is a resolved walking route: ordered geometry plus ordered steps.
type Route struct {
	Points          []geo.Point `json:"points"`
	DistanceMeters  float64     `json:"distance_meters"`
	DurationSeconds float64     `json:"duration_seconds"`
	Steps           []Step      `json:"steps"`
}

// StepRange is an inclusive index range into a route's step list.
type StepRange struct {
	First int `json:"first"`
	Last  int `json:"last"`
}

// Segment is a contiguous sub-range of a route with its own geometry,
// distance, duration and step subset. Index is 1-based and sequential.
// StepRange and Steps are populated once by the segmenter before the
// segment is handed downstream; nothing mutates a segment afterwards.
type Segment struct {
	Index           int        `json:"index"`
	Points          []geo.Point `json:"points"`
	Start           geo.Point  `json:"start"`
	End             geo.Point  `json:"end"`
	Region          geo.Region `json:"region"`
	DistanceMeters  float64    `json:"distance_meters"`
	DurationSeconds float64    `json:"duration_seconds"`
	StepRange       *StepRange `json:"step_range,omitempty"`
	Steps           []Step     `json:"steps,omitempty"`
}

// SplitPolicy selects how a route is partitioned into segments.
// Exactly one policy is active per run.
type SplitPolicy int

const (
	// SplitByDistance cuts a segment whenever accumulated great-circle
	// distance reaches the per-segment target.
	SplitByDistance SplitPolicy = iota
	// SplitByCount divides the coordinate sequence into exactly N
	// near-equal index ranges.
	SplitByCount
	// SplitBySteps groups a fixed number of navigation steps per segment.
	SplitBySteps
)

// ParseSplitPolicy maps a configuration string onto a SplitPolicy.
func ParseSplitPolicy(s string) (SplitPolicy, error) {
	switch s {
	case "distance":
		return SplitByDistance, nil
	case "count":
		return SplitByCount, nil
	case "steps":
		return SplitBySteps, nil
	}
	return 0, fmt.Errorf("unknown split policy %q (want distance, count, or steps)", s)
}

// SplitOptions carries the active policy and its numeric parameter.
type SplitOptions struct {
	Policy SplitPolicy

	// TargetDistanceMeters is the per-segment distance target for
	// SplitByDistance.
	TargetDistanceMeters float64

	// SegmentCount is the number of segments for SplitByCount.
	SegmentCount int

	// StepsPerSegment is the group size for SplitBySteps.
	StepsPerSegment int

	// PaddingFraction pads each segment's bounding region.
	PaddingFraction float64
}

package board

import (
	"strings"

	"github.com/pkg/errors"
)

// Edge is the transition an interrupt triggers on. String returns the sysfs token.
type Edge int

// The edge triggers, in sysfs order.
const (
	EdgeNone Edge = iota
	EdgeRising
	EdgeFalling
	EdgeBoth
)

var edgeNames = []string{"none", "rising", "falling", "both"}

func (edge Edge) String() string {
	if edge < EdgeNone || edge > EdgeBoth {
		return "invalid"
	}
	return edgeNames[edge]
}

// Triggers reports whether the edge arms anything.
func (edge Edge) Triggers() bool {
	return edge >= EdgeRising && edge <= EdgeBoth
}

// ParseEdge parses none/rising/falling/both, case-insensitively.
func ParseEdge(name string) (Edge, error) {
	lower := strings.ToLower(name)
	for i, edgeName := range edgeNames {
		if lower == edgeName {
			return Edge(i), nil
		}
	}
	return EdgeNone, errors.Wrapf(ErrInvalidArgument, "unknown edge %q, want none/rising/falling/both", name)
}

// Direction is what an exported pin is set to. String returns the sysfs token.
type Direction int

// The sysfs directions. High and low make the pin an output with that initial level.
const (
	DirectionIn Direction = iota
	DirectionOut
	DirectionHigh
	DirectionLow
)

func (dir Direction) String() string {
	switch dir {
	case DirectionIn:
		return "in"
	case DirectionOut:
		return "out"
	case DirectionHigh:
		return "high"
	case DirectionLow:
		return "low"
	}
	return "invalid"
}

// ParseDirection parses the export direction keywords: in/input, out/output, high/up, low/down.
func ParseDirection(name string) (Direction, error) {
	switch strings.ToLower(name) {
	case "in", "input":
		return DirectionIn, nil
	case "out", "output":
		return DirectionOut, nil
	case "high", "up":
		return DirectionHigh, nil
	case "low", "down":
		return DirectionLow, nil
	}
	return DirectionIn, errors.Wrapf(ErrInvalidArgument, "unknown direction %q, want in/out/high/low", name)
}

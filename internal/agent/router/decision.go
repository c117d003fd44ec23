package router

import (
	"fmt"
	"strings"
)

// Route is a downstream branch of the dispatcher.
type Route string

const (
	// RouteBoxHub sends the query to the Box Hub agent
	RouteBoxHub Route = "box_hub"

	// RouteBoxSearch sends the query to the Box Search agent. It is also the default.
	RouteBoxSearch Route = "box_search"
)

// Reasons recorded when the default route is taken.
const (
	ReasonMissing      = "missing"
	ReasonEmpty        = "empty"
	ReasonUnrecognized = "unrecognized"
)

// Decision is the outcome of reading the classifier label.
type Decision struct {
	// Raw is the label as the classifier wrote it
	Raw string

	// Route is the branch that runs
	Route Route

	// Fallback is true when Route is the default because the label was not usable
	Fallback bool

	// Reason explains a fallback; empty otherwise
	Reason string
}

// Decide normalizes a label and maps it to a route. Anything that is not a
// recognized label routes to RouteBoxSearch.
func Decide(raw string) Decision {
	label := normalize(raw)
	switch {
	case label == "":
		return Decision{Raw: raw, Route: RouteBoxSearch, Fallback: true, Reason: ReasonEmpty}
	case label == string(RouteBoxHub):
		return Decision{Raw: raw, Route: RouteBoxHub}
	case label == string(RouteBoxSearch):
		return Decision{Raw: raw, Route: RouteBoxSearch}
	default:
		return Decision{Raw: raw, Route: RouteBoxSearch, Fallback: true, Reason: ReasonUnrecognized}
	}
}

// Missing is the decision when no label was written at all.
func Missing() Decision {
	return Decision{Route: RouteBoxSearch, Fallback: true, Reason: ReasonMissing}
}

// decideValue handles state values, which are untyped.
func decideValue(value any, ok bool) Decision {
	if !ok || value == nil {
		return Missing()
	}
	if s, isString := value.(string); isString {
		return Decide(s)
	}
	d := Decide(fmt.Sprint(value))
	if !d.Fallback {
		// only a string can carry a label
		d = Decision{Raw: d.Raw, Route: RouteBoxSearch, Fallback: true, Reason: ReasonUnrecognized}
	}
	return d
}

func normalize(raw string) string {
	s := strings.TrimSpace(raw)
	for len(s) >= 2 {
		first, last := s[0], s[len(s)-1]
		if first != last || (first != '"' && first != '\'' && first != '`') {
			break
		}
		s = strings.TrimSpace(s[1 : len(s)-1])
	}
	return strings.ToLower(s)
}

// String formats the decision for logs.
func (d Decision) String() string {
	if !d.Fallback {
		return string(d.Route)
	}
	return fmt.Sprintf("%s (fallback: %s label %q)", d.Route, d.Reason, d.Raw)
}

package spec

import (
	"regexp"
	"strconv"
	"strings"
)

// Threshold is the structured form of a numeric constraint, e.g.
// "latency < 200ms" → {Metric: "latency", Comparator: "<", Value: 200,
// Unit: "ms"}.
type Threshold struct {
	Metric     string
	Comparator string // one of < <= > >= =
	Value      float64
	Unit       string // may be empty
}

// Constraint is one constraint line. Threshold is nil when the line does not
// express a numeric bound; such constraints are kept as opaque text and
// surfaced by the validator as warnings, never errors.
type Constraint struct {
	Text      string
	Threshold *Threshold
}

// thresholdRe matches "<metric> <comparator> <number><unit>". The metric is
// everything before the comparator; word comparators ("under", "at most",
// "at least", "above", "below") are normalized to symbols. A trailing unit
// is optional ("200ms", "512 MB", "99.9%").
var thresholdRe = regexp.MustCompile(
	`(?i)^(.+?)\s*(<=|>=|==|=|<|>|\bunder\b|\bbelow\b|\babove\b|\bover\b|\bat most\b|\bat least\b)\s*([0-9]+(?:\.[0-9]+)?)\s*([a-zA-Z%/]*)\s*\.?$`)

// normalizeComparator maps word comparators to their symbolic form.
func normalizeComparator(c string) string {
	switch strings.ToLower(strings.TrimSpace(c)) {
	case "under", "below":
		return "<"
	case "above", "over":
		return ">"
	case "at most":
		return "<="
	case "at least":
		return ">="
	case "=", "==":
		return "="
	default:
		return c
	}
}

// parseConstraint builds a Constraint from one constraint line, attaching a
// Threshold when the line expresses a numeric bound. Unparsable lines are
// kept as opaque text; parsing a constraint never fails.
func parseConstraint(text string) Constraint {
	m := thresholdRe.FindStringSubmatch(text)
	if m == nil {
		return Constraint{Text: text}
	}
	value, err := strconv.ParseFloat(m[3], 64)
	if err != nil {
		return Constraint{Text: text}
	}
	metric := strings.TrimSpace(m[1])
	// Strip filler verbs so "latency must be under 200ms" yields "latency".
	for _, suffix := range []string{"must be", "should be", "is", "must stay", "stays"} {
		metric = strings.TrimSpace(strings.TrimSuffix(metric, suffix))
	}
	if metric == "" {
		return Constraint{Text: text}
	}
	return Constraint{
		Text: text,
		Threshold: &Threshold{
			Metric:     metric,
			Comparator: normalizeComparator(m[2]),
			Value:      value,
			Unit:       m[4],
		},
	}
}

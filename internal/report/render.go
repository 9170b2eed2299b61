package report

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"text/tabwriter"
)

// Write renders s to w in format.
func Write(w io.Writer, s Summary, format string) error {
	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(s)
	case FormatText, "":
		return writeText(w, s)
	default:
		return fmt.Errorf("%w: %q", ErrFormat, format)
	}
}

func writeText(w io.Writer, s Summary) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)

	fmt.Fprintf(tw, "feed\t%s\n", s.Feed)
	fmt.Fprintf(tw, "observations\t%d\n", s.Observations)
	fmt.Fprintf(tw, "accepted\t%d\n", s.Accepted)
	fmt.Fprintf(tw, "duplicates\t%d\n", s.Duplicates)
	fmt.Fprintf(tw, "undeclared\t%d\n", s.Undeclared)

	reasons := make([]string, 0, len(s.Rejected))
	for r := range s.Rejected {
		reasons = append(reasons, r)
	}
	sort.Strings(reasons)
	for _, r := range reasons {
		fmt.Fprintf(tw, "rejected %s\t%d\n", r, s.Rejected[r])
	}

	for _, c := range s.Categories {
		mc := c.Confidence
		fmt.Fprintf(tw, "\n[%s]\n", c.Category)
		fmt.Fprintf(tw, "points\t%d\n", c.Points)
		fmt.Fprintf(tw, "weighted %s\t%.4g (confidence %.3f)\n", c.Field, c.WeightedValue, c.ValueConfidence)
		fmt.Fprintf(tw, "confidence\t%.3f [%.3f, %.3f]\n", mc.FinalConfidence, mc.ConfidenceInterval.Lower, mc.ConfidenceInterval.Upper)
		fmt.Fprintf(tw, "diversity\t%.2f\n", mc.SourceDiversity)
		fmt.Fprintf(tw, "methodology\t%.2f\n", mc.MethodologyStrength)
		fmt.Fprintf(tw, "freshness\t%.2f\n", mc.DataFreshness)
		fmt.Fprintf(tw, "contradictions\t%d\n", len(c.Contradictions))
		for _, x := range c.Contradictions {
			preferred := x.Preferred
			if preferred == "" {
				preferred = "none"
			}
			fmt.Fprintf(tw, "  %s vs %s\t%s vs %s, severity %.2f, prefer %s\n",
				x.SourceA, x.SourceB, x.ValueA, x.ValueB, x.Severity, preferred)
		}
	}

	if len(s.Credibility) > 0 {
		fmt.Fprintf(tw, "\n[credibility]\n")
	}
	for _, sc := range s.Credibility {
		m := sc.Metrics
		fmt.Fprintf(tw, "%s\t%.1f [%.1f, %.1f] multiplier %.2f authority %t\n",
			sc.SourceID, m.FinalScore, m.ConfidenceInterval.Lower, m.ConfidenceInterval.Upper,
			m.MethodologyMultiplier, m.AuthorityVerified)
	}
	return tw.Flush()
}

package adapter

import (
	"fmt"
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"

	"github.com/Sumatoshi-tech/metaast/pkg/meta"
)

// RoundTripReport is the outcome of checking the round-trip law on one tree.
type RoundTripReport struct {
	First  *meta.Node
	Second *meta.Node
	Diff   string
	Equal  bool
}

// CheckRoundTrip converts native to MetaAST, back to native, and to MetaAST
// again. The report is Equal when both MetaAST trees match under meta.Equal;
// otherwise Diff holds a line diff of their formatted text.
func CheckRoundTrip[N any](adapter Adapter[N], native N) (RoundTripReport, error) {
	first, err := adapter.ToMeta(native)
	if err != nil {
		return RoundTripReport{}, fmt.Errorf("first conversion: %w", err)
	}

	rebuilt, err := adapter.FromMeta(first, FromMetaOptions{})
	if err != nil {
		return RoundTripReport{}, fmt.Errorf("reconstruction: %w", err)
	}

	second, err := adapter.ToMeta(rebuilt)
	if err != nil {
		return RoundTripReport{}, fmt.Errorf("second conversion: %w", err)
	}

	report := RoundTripReport{First: first, Second: second, Equal: meta.Equal(first, second)}
	if !report.Equal {
		report.Diff = LineDiff(meta.Format(first), meta.Format(second))
	}

	return report, nil
}

// LineDiff renders a unified-style line diff between two texts.
func LineDiff(before, after string) string {
	differ := diffmatchpatch.New()

	beforeChars, afterChars, lines := differ.DiffLinesToChars(before, after)
	diffs := differ.DiffCharsToLines(differ.DiffMain(beforeChars, afterChars, false), lines)

	var builder strings.Builder

	for _, diff := range diffs {
		prefix := "  "

		switch diff.Type {
		case diffmatchpatch.DiffInsert:
			prefix = "+ "
		case diffmatchpatch.DiffDelete:
			prefix = "- "
		case diffmatchpatch.DiffEqual:
		}

		for _, line := range strings.SplitAfter(diff.Text, "\n") {
			if line == "" {
				continue
			}

			builder.WriteString(prefix)
			builder.WriteString(line)

			if !strings.HasSuffix(line, "\n") {
				builder.WriteByte('\n')
			}
		}
	}

	return builder.String()
}

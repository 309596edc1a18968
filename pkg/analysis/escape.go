package analysis

import (
	"fmt"

	"github.com/Sumatoshi-tech/metaast/pkg/meta"
)

// NativeEscapeName is the registry name of NativeEscape.
const NativeEscapeName = "native_escape"

// NativeEscape reports every LanguageSpecific node, i.e. every construct an
// analyzer written against Core and Extended nodes cannot see into.
//
// Options: "severity" overrides the default info severity.
type NativeEscape struct{}

// Name implements Analyzer.
func (NativeEscape) Name() string { return NativeEscapeName }

// Description implements Analyzer.
func (NativeEscape) Description() string {
	return "Reports constructs kept as language-specific escape nodes."
}

// Kinds implements KindFilter.
func (NativeEscape) Kinds() []meta.Kind {
	return []meta.Kind{meta.KindLanguageSpecific}
}

// Visit implements Analyzer.
func (NativeEscape) Visit(node *meta.Node, ctx Context) ([]Issue, error) {
	attrs, ok := node.Attrs.(meta.LanguageSpecificAttrs)
	if !ok {
		return nil, nil
	}

	severity := SeverityInfo

	if raw, set := ctx.Config["severity"]; set {
		name, isString := raw.(string)
		if !isString {
			return nil, fmt.Errorf("severity option: want string, got %T", raw)
		}

		severity = Severity(name)
	}

	construct := attrs.Hint
	if construct == "" {
		construct = "construct"
	}

	return []Issue{{
		Message:  fmt.Sprintf("%s %s kept as a native %s node", attrs.Language, construct, meta.KindLanguageSpecific),
		Severity: severity,
	}}, nil
}

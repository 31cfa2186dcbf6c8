package toolcall

import (
	"fmt"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/vector-copilot/orchestrator/tools"
)

// TestParseProperty_XMLTagOrderIsIrrelevant checks that parsing a single
// top-level XML-style tool tag never depends on the order its child tags
// appear in: the recovered tool name and the set of argument keys must be
// the same for any permutation of the same three children.
func TestParseProperty_XMLTagOrderIsIrrelevant(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("child tag order does not change the parsed arg set", prop.ForAll(
		func(a, b, c string) bool {
			text := fmt.Sprintf(
				"<create_instance><className>%s</className><parentPath>%s</parentPath><name>%s</name></create_instance>",
				a, b, c,
			)
			reordered := fmt.Sprintf(
				"<create_instance><name>%s</name><className>%s</className><parentPath>%s</parentPath></create_instance>",
				c, a, b,
			)

			inv1, err1 := Parse(text)
			inv2, err2 := Parse(reordered)
			if err1 != nil || err2 != nil {
				return err1 == err2
			}
			return inv1.Name == inv2.Name &&
				inv1.Args["className"] == inv2.Args["className"] &&
				inv1.Args["parentPath"] == inv2.Args["parentPath"] &&
				inv1.Args["name"] == inv2.Args["name"]
		},
		genTagSafeString(),
		genTagSafeString(),
		genTagSafeString(),
	))

	properties.TestingRun(t)
}

// TestParseProperty_ArbitraryProseNeverPanics checks that Parse never
// panics on arbitrary surrounding prose, regardless of whether a tool
// call is recoverable from it.
func TestParseProperty_ArbitraryProseNeverPanics(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("Parse never panics on arbitrary text", prop.ForAll(
		func(prefix, suffix string) bool {
			text := prefix + `<move_instance><path>game.Workspace.Part</path><newParentPath>game.Workspace</newParentPath></move_instance>` + suffix
			inv, err := Parse(text)
			if err != nil {
				return true
			}
			return inv.Name == tools.Ident("move_instance")
		},
		gen.AlphaString(),
		gen.AlphaString(),
	))

	properties.TestingRun(t)
}

// genTagSafeString generates letters-only strings safe to embed as XML
// tag text without needing to escape reserved characters.
func genTagSafeString() gopter.Gen {
	return gen.AlphaString().SuchThat(func(s string) bool { return len(s) > 0 })
}

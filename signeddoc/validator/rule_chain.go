package validator

import (
	"context"
	"fmt"

	"github.com/input-output-hk/go-signed-doc/signeddoc"
)

// ChainRule applies the chain policy and, when a chain is present, walks it
// backwards through the provider checking link integrity: same id, strictly
// descending versions, heights decreasing by exactly one down to an origin at
// height zero, no link onto a terminal document and no cycles.
type ChainRule struct {
	Policy Requirement
	Depth  int
}

func (r ChainRule) Check(ctx context.Context, doc *signeddoc.Document, provider signeddoc.Provider, report *signeddoc.Report) (bool, error) {
	const context = "chain rule"
	before := report.Len()

	chain := doc.Metadata.Chain
	if chain == nil {
		if r.Policy == Required {
			report.MissingField("chain", context)
		}
		return report.Len() == before, nil
	}
	if r.Policy == Excluded {
		report.InvalidValue("chain", chain.String(), "field must be absent", context)
		return false, nil
	}

	if chain.Link == nil && chain.AbsHeight() != 0 {
		report.RuleViolation("chain",
			fmt.Sprintf("height %d without a link; only height 0 may omit it", chain.Height))
	}
	if chain.Link != nil && chain.AbsHeight() == 0 {
		report.RuleViolation("chain", "height 0 must not carry a link")
	}

	depth := r.Depth
	if depth <= 0 {
		depth = DefaultLimits().ChainDepth
	}

	cur, curChain := doc, chain
	visited := map[signeddoc.DocumentRef]bool{doc.Ref(): true}
	for steps := 0; curChain.Link != nil; steps++ {
		if err := ctx.Err(); err != nil {
			return false, err
		}
		if steps >= depth {
			report.RuleViolation("chain",
				fmt.Sprintf("walk exceeded the depth limit of %d", depth))
			break
		}
		link := *curChain.Link
		if !link.HasVer() {
			report.RuleViolation("chain",
				fmt.Sprintf("link %s does not pin an exact version", link))
			break
		}
		target, err := resolveDocument(ctx, provider, link)
		if err != nil {
			return false, err
		}
		if target == nil {
			report.UnresolvedReference(link, context)
			break
		}
		tChain := target.Metadata.Chain
		if tChain == nil {
			report.RuleViolation("chain",
				fmt.Sprintf("linked document %s carries no chain", link))
			break
		}
		if tChain.Terminal() {
			report.RuleViolation("chain",
				fmt.Sprintf("linked document %s is terminal; nothing may chain onto it", link))
			break
		}
		if target.Metadata.ID != cur.Metadata.ID {
			report.RuleViolation("chain",
				fmt.Sprintf("linked document %s has a different id", link))
		}
		if target.Metadata.Ver.Compare(cur.Metadata.Ver) >= 0 {
			report.RuleViolation("chain",
				fmt.Sprintf("linked version %s is not older than %s", target.Metadata.Ver, cur.Metadata.Ver))
		}
		if curChain.AbsHeight() != tChain.Height+1 {
			report.RuleViolation("chain",
				fmt.Sprintf("height %d links to height %d; heights must descend by one",
					curChain.AbsHeight(), tChain.Height))
			break
		}
		ref := target.Ref()
		if visited[ref] {
			report.RuleViolation("chain", fmt.Sprintf("cycle through %s", ref))
			break
		}
		visited[ref] = true
		cur, curChain = target, tChain
	}
	if cur != doc && curChain.Link == nil && curChain.AbsHeight() != 0 {
		report.RuleViolation("chain",
			fmt.Sprintf("origin document %s has height %d, want 0", cur.Ref(), curChain.Height))
	}
	return report.Len() == before, nil
}

package policy

// Policy is an ordered set of Rule shards combined through the action
// algebra: each shard that matches contributes its action, and the
// verdicts are merged with Restrict (always keeping the more restrictive
// one). Evaluation stops as soon as a Block is reached, since nothing can
// relax it further. This is the Go shape of the original's
// AclDstHostRuleSet<ProtocolInspectAction>.
//
// missedAction is the policy-wide fallback used only while no shard in
// the set has had an opinion yet (an empty shard list, or a run where
// every shard so far reports !matched). Once any shard does have an
// opinion — a real match, spec §4.3's "when a shard returns !matched,
// its missed_action participates like any other action" — every
// subsequent shard's own per-shard missed_action also folds into the
// Restrict combination instead of being skipped.
type Policy struct {
	shards       []Rule
	missedAction Action
}

// NewPolicy builds a Policy from an ordered list of shards. missedAction is
// returned when no shard matches the destination at all.
func NewPolicy(missedAction Action, shards ...Rule) *Policy {
	return &Policy{shards: shards, missedAction: missedAction}
}

// Check evaluates host against every shard in order and returns the
// combined verdict.
func (p *Policy) Check(host string) Action {
	result := p.missedAction
	matchedAny := false

	for _, shard := range p.shards {
		matched, action := shard.Check(host)
		if !matched && !matchedAny {
			// Nothing has an opinion yet: the policy's own missedAction
			// still stands, and this shard's own missed_action hasn't
			// earned a say until some shard in the set actually matches.
			continue
		}
		if !matchedAny {
			result = action
			matchedAny = true
		} else {
			// Either a real match, or (per spec §4.3) this shard's own
			// missed_action participating now that the set has an opinion.
			result = result.Restrict(action)
		}
		if result.ForbidEarly() {
			return result
		}
	}
	return result
}

package policy

import (
	"net"
	"strings"
)

// Rule is a single policy shard: given a destination host, it reports
// whether it has an opinion (matched) and an Action that always applies —
// a real match's action, or the shard's own missed_action fallback when
// nothing matched (spec §3: "a prefix-matched key-to-action mapping plus a
// missed_action"; §4.3: "when a shard returns !matched, its missed_action
// participates like any other action"). ExactRule, RadixTrieRule, NetRule
// and WildcardRule all implement it, and a Policy combines an ordered
// slice of Rules into one verdict.
type Rule interface {
	Check(host string) (matched bool, action Action)
}

// ExactRule matches a host against a fixed set of exact names, the way an
// exact-host ACL shard does (spec §3's "AclRule ... composable via ...
// exact-host rule sets"). Like every shard here it carries its own
// missedAction (spec §3: "a prefix-matched key-to-action mapping plus a
// missed_action"), defaulting to Intercept — the Restrict identity, so an
// unconfigured missed action never changes a Policy's combined verdict.
type ExactRule struct {
	entries      map[string]Action
	missedAction Action
}

func NewExactRule() *ExactRule {
	return &ExactRule{entries: make(map[string]Action)}
}

// SetMissedAction overrides the action Check returns when host matches
// nothing registered in this shard (default Intercept).
func (r *ExactRule) SetMissedAction(action Action) { r.missedAction = action }

func (r *ExactRule) Add(host string, action Action) {
	r.entries[strings.ToLower(host)] = action
}

func (r *ExactRule) Check(host string) (bool, Action) {
	if action, ok := r.entries[strings.ToLower(host)]; ok {
		return true, action
	}
	return false, r.missedAction
}

// RadixTrieRule matches a host by longest registered domain suffix: an
// entry for "example.com" matches "example.com" itself and any
// "*.example.com" subdomain, the way the original's AclRadixTrieRule
// matches reversed-label domain keys against their nearest trie ancestor.
// A Go map keyed by the candidate suffix, walked from most to least
// specific, gives the same "nearest matching ancestor" result as a real
// label trie without needing one.
type RadixTrieRule struct {
	suffixes     map[string]Action
	missedAction Action
}

func NewRadixTrieRule() *RadixTrieRule {
	return &RadixTrieRule{suffixes: make(map[string]Action)}
}

// SetMissedAction overrides the action Check returns when no registered
// suffix matches host (default Intercept).
func (r *RadixTrieRule) SetMissedAction(action Action) { r.missedAction = action }

// AddSuffix registers an action for domain and everything below it.
func (r *RadixTrieRule) AddSuffix(domain string, action Action) {
	r.suffixes[strings.ToLower(domain)] = action
}

func (r *RadixTrieRule) Check(host string) (bool, Action) {
	host = strings.ToLower(strings.TrimSuffix(host, "."))
	for {
		if action, ok := r.suffixes[host]; ok {
			return true, action
		}
		idx := strings.IndexByte(host, '.')
		if idx < 0 {
			return false, r.missedAction
		}
		host = host[idx+1:]
	}
}

// NetRule matches a host (parsed as an IP literal) against a set of IPv4/
// IPv6 networks, picking the most specific (longest prefix) match. This
// fills the "IP-net rule set" half of spec §3's composable shard family,
// which the distillation named but did not spell out operationally.
type NetRule struct {
	entries      []netEntry
	missedAction Action
}

type netEntry struct {
	network *net.IPNet
	action  Action
}

func NewNetRule() *NetRule { return &NetRule{} }

// SetMissedAction overrides the action Check returns when host isn't an IP
// literal or matches no registered network (default Intercept).
func (r *NetRule) SetMissedAction(action Action) { r.missedAction = action }

func (r *NetRule) AddCIDR(cidr string, action Action) error {
	_, network, err := net.ParseCIDR(cidr)
	if err != nil {
		return err
	}
	r.entries = append(r.entries, netEntry{network: network, action: action})
	return nil
}

func (r *NetRule) Check(host string) (bool, Action) {
	ip := net.ParseIP(host)
	if ip == nil {
		return false, r.missedAction
	}
	matched := false
	best := netEntry{action: r.missedAction}
	bestOnes := -1
	for _, e := range r.entries {
		if !e.network.Contains(ip) {
			continue
		}
		ones, _ := e.network.Mask.Size()
		if ones > bestOnes {
			bestOnes = ones
			best = e
			matched = true
		}
	}
	return matched, best.action
}

// WildcardRule always matches, supplying the policy's catch-all default
// action (spec §3's "default" shard of the AclRule family).
type WildcardRule struct {
	action Action
}

func NewWildcardRule(action Action) *WildcardRule { return &WildcardRule{action: action} }

func (r *WildcardRule) Check(string) (bool, Action) { return true, r.action }

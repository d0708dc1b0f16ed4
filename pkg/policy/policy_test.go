package policy

import "testing"

func TestActionOrdering(t *testing.T) {
	if !(Intercept < Detour && Detour < Bypass && Bypass < Block) {
		t.Fatal("expected Intercept < Detour < Bypass < Block")
	}
}

func TestRestrictTakesMoreRestrictive(t *testing.T) {
	cases := []struct {
		a, b, want Action
	}{
		{Intercept, Bypass, Bypass},
		{Block, Intercept, Block},
		{Detour, Detour, Detour},
		{Bypass, Block, Block},
	}
	for _, c := range cases {
		if got := c.a.Restrict(c.b); got != c.want {
			t.Errorf("%v.Restrict(%v) = %v, want %v", c.a, c.b, got, c.want)
		}
	}
}

func TestForbidEarly(t *testing.T) {
	if !Block.ForbidEarly() {
		t.Error("Block should forbid early")
	}
	for _, a := range []Action{Intercept, Detour, Bypass} {
		if a.ForbidEarly() {
			t.Errorf("%v should not forbid early", a)
		}
	}
}

func TestParseAction(t *testing.T) {
	for _, name := range []string{"intercept", "Detour", "BYPASS", "block"} {
		if _, ok := ParseAction(name); !ok {
			t.Errorf("ParseAction(%q) failed", name)
		}
	}
	if _, ok := ParseAction("nonsense"); ok {
		t.Error("expected ParseAction to reject an unknown name")
	}
}

func TestExactRule(t *testing.T) {
	r := NewExactRule()
	r.Add("Example.COM", Block)

	if matched, action := r.Check("example.com"); !matched || action != Block {
		t.Fatalf("got (%v, %v), want (true, Block)", matched, action)
	}
	if matched, _ := r.Check("sub.example.com"); matched {
		t.Fatal("exact rule should not match subdomains")
	}
}

func TestRadixTrieRuleMatchesSuffix(t *testing.T) {
	r := NewRadixTrieRule()
	r.AddSuffix("example.com", Bypass)

	for _, host := range []string{"example.com", "www.example.com", "a.b.example.com"} {
		if matched, action := r.Check(host); !matched || action != Bypass {
			t.Errorf("Check(%q) = (%v, %v), want (true, Bypass)", host, matched, action)
		}
	}
	if matched, _ := r.Check("notexample.com"); matched {
		t.Error("should not match a host that merely ends with the label text")
	}
	if matched, _ := r.Check("other.net"); matched {
		t.Error("unrelated host should not match")
	}
}

func TestNetRulePicksMostSpecific(t *testing.T) {
	r := NewNetRule()
	if err := r.AddCIDR("10.0.0.0/8", Bypass); err != nil {
		t.Fatal(err)
	}
	if err := r.AddCIDR("10.1.0.0/16", Block); err != nil {
		t.Fatal(err)
	}

	matched, action := r.Check("10.1.2.3")
	if !matched || action != Block {
		t.Fatalf("got (%v, %v), want (true, Block) for the more specific /16", matched, action)
	}

	matched, action = r.Check("10.2.3.4")
	if !matched || action != Bypass {
		t.Fatalf("got (%v, %v), want (true, Bypass) from the /8", matched, action)
	}

	if matched, _ := r.Check("not-an-ip"); matched {
		t.Error("non-IP host should not match a net rule")
	}
}

func TestPolicyCombinesShardsByRestrict(t *testing.T) {
	exact := NewExactRule()
	exact.Add("evil.example.com", Block)

	suffix := NewRadixTrieRule()
	suffix.AddSuffix("example.com", Bypass)

	p := NewPolicy(DefaultForbid(), exact, suffix)

	if got := p.Check("evil.example.com"); got != Block {
		t.Errorf("Check(evil.example.com) = %v, want Block (exact rule wins via forbid_early)", got)
	}
	if got := p.Check("www.example.com"); got != Bypass {
		t.Errorf("Check(www.example.com) = %v, want Bypass", got)
	}
	if got := p.Check("unrelated.net"); got != DefaultForbid() {
		t.Errorf("Check(unrelated.net) = %v, want default forbid", got)
	}
}

func TestPolicyDefaultPermitFallback(t *testing.T) {
	wildcard := NewWildcardRule(Intercept)
	p := NewPolicy(DefaultForbid(), wildcard)

	if got := p.Check("anything.example"); got != Intercept {
		t.Errorf("Check() = %v, want Intercept from the wildcard default", got)
	}
}

func TestPolicyShardMissedActionParticipates(t *testing.T) {
	// suffix has an opinion on this host; net never matches an IP literal
	// here, but its own missed_action (Block) still folds in via Restrict
	// per spec §4.3, rather than being skipped as a non-match.
	suffix := NewRadixTrieRule()
	suffix.AddSuffix("example.com", Bypass)

	net := NewNetRule()
	if err := net.AddCIDR("10.0.0.0/8", Block); err != nil {
		t.Fatal(err)
	}
	net.SetMissedAction(Block)

	p := NewPolicy(DefaultPermit(), suffix, net)

	if got := p.Check("www.example.com"); got != Block {
		t.Errorf("Check(www.example.com) = %v, want Block (net shard's own missed_action restricts the suffix match)", got)
	}
}

func TestPolicyShardMissedActionIgnoredWhenNothingMatchesAtAll(t *testing.T) {
	// When no shard in the set ever matches, the policy's own
	// missedAction wins rather than any shard's per-shard missed_action —
	// those only participate once the set as a whole has an opinion.
	exact := NewExactRule()
	exact.Add("other.example.com", Block)

	suffix := NewRadixTrieRule()
	suffix.AddSuffix("example.org", Bypass)
	suffix.SetMissedAction(Detour)

	p := NewPolicy(DefaultForbid(), exact, suffix)

	if got := p.Check("unrelated.net"); got != DefaultForbid() {
		t.Errorf("Check(unrelated.net) = %v, want default forbid, not a shard's own missed_action", got)
	}
}

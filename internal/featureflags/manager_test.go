package featureflags

import "testing"

func TestEnabled_BooleanValues(t *testing.T) {
	m := NewManager("a=on,b=off,c=true,d=false,e=1,f=0")

	if !m.Enabled("a", 1) || !m.Enabled("c", 1) || !m.Enabled("e", 1) {
		t.Fatal("expected enabled boolean values to evaluate true")
	}
	if m.Enabled("b", 1) || m.Enabled("d", 1) || m.Enabled("f", 1) {
		t.Fatal("expected disabled boolean values to evaluate false")
	}
}

func TestEnabled_PercentageValues(t *testing.T) {
	m := NewManager("always=100%,never=0%,canary=25%")

	if !m.Enabled("always", 1) {
		t.Fatal("100% rollout should always be enabled")
	}
	if m.Enabled("never", 1) {
		t.Fatal("0% rollout should always be disabled")
	}

	first := m.Enabled("canary", 42)
	for i := 0; i < 5; i++ {
		if got := m.Enabled("canary", 42); got != first {
			t.Fatal("rollout evaluation must be deterministic per user")
		}
	}

	if m.Enabled("canary", 0) {
		t.Fatal("percentage rollout requires non-zero userID")
	}
}

func TestNewManager_SkipsMalformedEntries(t *testing.T) {
	m := NewManager(" bad ,x=on, Y = 20% ,z=off,w=maybe,v=abc%,=on,big=150%,neg=-5% ")

	got := m.For(0)
	want := map[string]bool{"x": true, "y": false, "z": false, "big": true, "neg": false}
	if len(got) != len(want) {
		t.Fatalf("expected %d parsed flags, got %#v", len(want), got)
	}
	for name, enabled := range want {
		if got[name] != enabled {
			t.Fatalf("flag %q: expected %v, got %v", name, enabled, got[name])
		}
	}
	if _, ok := got["w"]; ok {
		t.Fatal("unparseable values must be dropped")
	}
}

func TestFor_MatchesEnabled(t *testing.T) {
	m := NewManager("live_feed=50%,other=on")
	for uid := uint(1); uid < 50; uid++ {
		flags := m.For(uid)
		if flags[LiveFeed] != m.Enabled(LiveFeed, uid) || !flags["other"] {
			t.Fatalf("For(%d) disagrees with Enabled: %#v", uid, flags)
		}
	}
}

func TestLiveFeedFlag(t *testing.T) {
	if !NewManager("live_feed=on").Enabled(LiveFeed, 0) {
		t.Fatal("live_feed=on should enable the feed for anonymous ids too")
	}
	if NewManager("").Enabled(LiveFeed, 7) {
		t.Fatal("an unset flag must be disabled")
	}

	var nilManager *Manager
	if nilManager.Enabled(LiveFeed, 7) || len(nilManager.For(7)) != 0 {
		t.Fatal("a nil manager reports everything disabled")
	}
}

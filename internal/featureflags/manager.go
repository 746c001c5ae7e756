// Package featureflags evaluates the FEATURE_FLAGS rollout list, e.g.
// "live_feed=25%,other=off".
package featureflags

import (
	"fmt"
	"hash/fnv"
	"strconv"
	"strings"
)

// LiveFeed gates post_created pushes to followers over /ws/feed.
const LiveFeed = "live_feed"

// Manager holds the rollout percentage of every configured flag.
// A nil Manager reports every flag as disabled.
type Manager struct {
	rollout map[string]int
}

// NewManager parses raw. Values are on/true/1, off/false/0 or N%; entries
// that do not parse are ignored.
func NewManager(raw string) *Manager {
	rollout := make(map[string]int)
	for _, pair := range strings.Split(raw, ",") {
		key, value, ok := strings.Cut(pair, "=")
		if !ok {
			continue
		}
		key = normalize(key)
		pct, ok := parsePercent(normalize(value))
		if key == "" || !ok {
			continue
		}
		rollout[key] = pct
	}
	return &Manager{rollout: rollout}
}

func parsePercent(value string) (int, bool) {
	switch value {
	case "on", "true", "1":
		return 100, true
	case "off", "false", "0":
		return 0, true
	}
	digits, found := strings.CutSuffix(value, "%")
	if !found {
		return 0, false
	}
	pct, err := strconv.Atoi(digits)
	if err != nil {
		return 0, false
	}
	return min(max(pct, 0), 100), true
}

// Enabled reports whether name is on for userID. Partial rollouts are
// deterministic per user and never include anonymous visitors (userID 0).
func (m *Manager) Enabled(name string, userID uint) bool {
	if m == nil {
		return false
	}
	pct := m.rollout[normalize(name)]
	switch {
	case pct <= 0:
		return false
	case pct >= 100:
		return true
	case userID == 0:
		return false
	}
	return rolloutBucket(name, userID) < pct
}

// For evaluates every configured flag for userID, for use in templates.
func (m *Manager) For(userID uint) map[string]bool {
	out := map[string]bool{}
	if m == nil {
		return out
	}
	for name := range m.rollout {
		out[name] = m.Enabled(name, userID)
	}
	return out
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func rolloutBucket(name string, userID uint) int {
	h := fnv.New32a()
	_, _ = fmt.Fprintf(h, "%s:%d", normalize(name), userID)
	return int(h.Sum32() % 100)
}

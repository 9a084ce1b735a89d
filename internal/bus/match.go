package bus

import "strings"

// MatchAll is the reserved catch-all pattern. A handler registered under
// MatchAll receives every inbound message regardless of topic.
const MatchAll = "*"

// Match reports whether topic matches pattern.
//
// Patterns are segmented on "/" and compared segment by segment. The
// single-level wildcard "+" matches exactly one segment. Segment counts
// must be equal: there is no multi-level "#" wildcard, a pattern with
// fewer or more segments than the topic never matches. The one exception
// is the reserved universal pattern "*", which matches any topic.
//
// Match is pure and deterministic. Every adapter's topic-prefix detection
// relies on this contract, so it must not grow broker-specific behaviour.
func Match(pattern, topic string) bool {
	if pattern == MatchAll {
		return true
	}
	if pattern == topic {
		return true
	}
	if !strings.Contains(pattern, "+") {
		return false
	}

	pseg := strings.Split(pattern, "/")
	tseg := strings.Split(topic, "/")
	if len(pseg) != len(tseg) {
		return false
	}

	for i, p := range pseg {
		if p == "+" {
			continue
		}
		if p != tseg[i] {
			return false
		}
	}
	return true
}

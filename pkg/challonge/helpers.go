package challonge

import (
	"regexp"
	"strings"
)

var (
	slugPattern = regexp.MustCompile(`^[\w-]+$`)
	urlPattern  = regexp.MustCompile(`^https?://(?:(\w+)\.)?challonge\.com/(?:tournaments/)?([^/?#]+)`)
)

// ParseTournamentURL extracts the API slug from a Challonge URL or a plain
// slug. Subdomain tournaments map to "subdomain-slug". Returns "" when the
// input is not recognizable.
func ParseTournamentURL(raw string) string {
	raw = strings.TrimSpace(raw)

	if slugPattern.MatchString(raw) {
		return raw
	}

	m := urlPattern.FindStringSubmatch(raw)
	if m == nil {
		return ""
	}
	subdomain, slug := m[1], m[2]
	if subdomain != "" && subdomain != "www" {
		return subdomain + "-" + slug
	}
	return slug
}

// FindParticipant resolves a side name to a participant, preferring an exact
// case-insensitive match and falling back to a substring match.
func FindParticipant(participants []Participant, name string) (*Participant, bool) {
	needle := strings.ToLower(strings.TrimSpace(name))

	for i := range participants {
		if strings.ToLower(participants[i].EffectiveName()) == needle {
			return &participants[i], true
		}
	}
	for i := range participants {
		if strings.Contains(strings.ToLower(participants[i].EffectiveName()), needle) {
			return &participants[i], true
		}
	}
	return nil, false
}

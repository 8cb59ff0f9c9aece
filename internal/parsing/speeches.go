package parsing

import (
	"log"
	"regexp"
	"strings"

	"github.com/protokollmine/protokollmine/internal/types"
)

// Role keywords tried in order against the party-stripped header. First match
// wins; extend the list to teach the parser new offices.
var roleKeywords = []string{
	`Präsident(?:in)?`,
	`Vizepräsident(?:in)?`,
	`Bundesminister(?:in)?`,
	`Bundeskanzler(?:in)?`,
	`Staatssekretär(?:in)?`,
	`Staatsminister(?:in)?`,
	`Parlamentarische(?:r)?\s+Staatssekretär(?:in)?`,
}

// Audience reactions that mark a parenthesized aside as stage direction
// rather than spoken content.
var stageKeywords = []string{
	"Beifall",
	"Zuruf",
	"Heiterkeit",
	"Lachen",
	"Unruhe",
	"Beifallsrufe",
}

var (
	speakerPattern      = regexp.MustCompile(`(?m)^\s*([A-ZÄÖÜß][^\n:]{2,}?)(?::|\s+:)`)
	partyPattern        = regexp.MustCompile(`\(([^)]+)\)`)
	stagePattern        = regexp.MustCompile(`(?i)\((?:[^()]*?(?:` + strings.Join(stageKeywords, "|") + `)[^()]*)\)`)
	multiSpacePattern   = regexp.MustCompile(`\s{2,}`)
	interjectionPattern = regexp.MustCompile(`(?m)^Zuruf von [^\n:]+:.*$`)

	rolePatterns = compileRolePatterns()
)

func compileRolePatterns() []*regexp.Regexp {
	patterns := make([]*regexp.Regexp, 0, len(roleKeywords))
	for _, keyword := range roleKeywords {
		patterns = append(patterns, regexp.MustCompile(`(?i)^(`+keyword+`\b[^:]*?)\s+(.+)$`))
	}
	return patterns
}

// ParseSpeeches segments a raw plenary transcript into attributed speeches.
// It never fails: input without recognizable speaker headers yields an empty
// result and a logged warning. Output order follows the textual order of the
// headers, and sequence numbers are the 1-based header positions, so a
// dropped empty body leaves a gap rather than renumbering later speeches.
func ParseSpeeches(protocolText, protocolID string) []types.Speech {
	cleanedText := interjectionPattern.ReplaceAllString(protocolText, "")
	matches := speakerPattern.FindAllStringSubmatchIndex(cleanedText, -1)
	if len(matches) == 0 {
		log.Printf("No speeches detected for protocol %s", protocolID)
		return []types.Speech{}
	}

	speeches := make([]types.Speech, 0, len(matches))
	for i, match := range matches {
		start := match[1]
		end := len(cleanedText)
		if i+1 < len(matches) {
			end = matches[i+1][0]
		}
		rawHeader := strings.TrimSpace(cleanedText[match[2]:match[3]])
		body := strings.TrimSpace(cleanedText[start:end])
		body = stagePattern.ReplaceAllString(body, "")
		body = multiSpacePattern.ReplaceAllString(body, " ")
		body = strings.TrimSpace(body)
		if body == "" {
			continue
		}

		header, party := extractParty(rawHeader)
		name, role := splitRole(header)
		speeches = append(speeches, types.Speech{
			ProtocolID:     protocolID,
			SequenceNumber: i + 1,
			SpeakerName:    name,
			Party:          party,
			Role:           role,
			Text:           body,
		})
	}
	return speeches
}

// extractParty pulls the first parenthesized fragment out of the header as
// the party code and strips every parenthesized fragment from the remainder.
func extractParty(header string) (string, *string) {
	match := partyPattern.FindStringSubmatch(header)
	if match == nil {
		return strings.TrimSpace(header), nil
	}
	party := strings.TrimSpace(match[1])
	cleaned := strings.TrimSpace(partyPattern.ReplaceAllString(header, ""))
	return cleaned, &party
}

// splitRole separates a leading office title from the speaker's name.
func splitRole(header string) (string, *string) {
	for _, pattern := range rolePatterns {
		if match := pattern.FindStringSubmatch(header); match != nil {
			role := strings.TrimSpace(match[1])
			name := strings.TrimSpace(match[2])
			return name, &role
		}
	}
	return strings.TrimSpace(header), nil
}

package mention

import "regexp"

// mentionPattern matches "@" followed by one or more word characters. The
// match deliberately fires mid-word too, so "test@example.com" yields
// "example" -- this mirrors how the client parses text and keeping both
// sides on the same rule is what guarantees they agree on what counts as a
// mention. Resolution against real accounts happens later in the Resolver.
var mentionPattern = regexp.MustCompile(`@(\w+)`)

// Extract returns the bare usernames of all @mentions in text, in order of
// first occurrence, duplicates preserved. It is a pure function: the live
// editor and the submission pipeline both call it, so the two can never
// disagree syntactically.
func Extract(text string) []string {
	matches := mentionPattern.FindAllStringSubmatch(text, -1)
	if len(matches) == 0 {
		return nil
	}

	usernames := make([]string, 0, len(matches))
	for _, m := range matches {
		usernames = append(usernames, m[1])
	}
	return usernames
}

// Dedupe removes duplicate usernames while preserving first-seen order.
func Dedupe(usernames []string) []string {
	if len(usernames) == 0 {
		return nil
	}

	seen := make(map[string]struct{}, len(usernames))
	out := make([]string, 0, len(usernames))
	for _, u := range usernames {
		if _, ok := seen[u]; ok {
			continue
		}
		seen[u] = struct{}{}
		out = append(out, u)
	}
	return out
}

// Segment kinds produced by Split.
const (
	SegmentText    = "text"
	SegmentMention = "mention"
)

// Segment is one run of text, either plain or a mention. Start and End are
// byte offsets into the source string; Username is set only for mentions and
// excludes the "@".
type Segment struct {
	Kind     string `json:"kind"`
	Text     string `json:"text"`
	Username string `json:"username,omitempty"`
	Start    int    `json:"start"`
	End      int    `json:"end"`
}

// Split breaks text into plain and mention segments so callers can render
// mentions as tappable spans. It shares mentionPattern with Extract, so the
// set of mention segments always equals what Extract reports.
func Split(text string) []Segment {
	locs := mentionPattern.FindAllStringSubmatchIndex(text, -1)
	if len(locs) == 0 {
		if text == "" {
			return nil
		}
		return []Segment{{Kind: SegmentText, Text: text, Start: 0, End: len(text)}}
	}

	segments := make([]Segment, 0, len(locs)*2+1)
	last := 0
	for _, loc := range locs {
		start, end := loc[0], loc[1]
		if start > last {
			segments = append(segments, Segment{
				Kind:  SegmentText,
				Text:  text[last:start],
				Start: last,
				End:   start,
			})
		}
		segments = append(segments, Segment{
			Kind:     SegmentMention,
			Text:     text[start:end],
			Username: text[loc[2]:loc[3]],
			Start:    start,
			End:      end,
		})
		last = end
	}
	if last < len(text) {
		segments = append(segments, Segment{
			Kind:  SegmentText,
			Text:  text[last:],
			Start: last,
			End:   len(text),
		})
	}

	return segments
}

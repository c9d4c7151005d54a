package ai

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"
)

// Draft is a generated post that has not been persisted yet.
type Draft struct {
	Title          string  `json:"title"`
	Content        string  `json:"content"`
	Category       string  `json:"category"`
	Source         string  `json:"source"`
	Topic          string  `json:"topic"`
	RelevanceScore float64 `json:"relevance_score"`
	WordCount      int     `json:"word_count"`
	GeneratedAt    string  `json:"generated_at"`
	Provider       string  `json:"-"`
}

// UnmarshalJSON accepts relevance_score and word_count as numbers or as
// numeric strings, which some models emit. Anything else leaves them zero.
func (d *Draft) UnmarshalJSON(b []byte) error {
	type plain Draft
	aux := struct {
		*plain
		RelevanceScore json.RawMessage `json:"relevance_score"`
		WordCount      json.RawMessage `json:"word_count"`
	}{plain: (*plain)(d)}
	if err := json.Unmarshal(b, &aux); err != nil {
		return err
	}
	d.RelevanceScore = lenientNumber(aux.RelevanceScore)
	d.WordCount = int(lenientNumber(aux.WordCount))
	return nil
}

// lenientNumber reads a JSON number or a quoted number, returning 0 for
// anything else.
func lenientNumber(raw json.RawMessage) float64 {
	if len(raw) == 0 {
		return 0
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		return f
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return 0
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0
	}
	return f
}

// ParseKind tags how a draft came out of the parser.
type ParseKind int

const (
	// Rejected means no usable draft could be built.
	Rejected ParseKind = iota
	// Structured means a JSON object was found and decoded.
	Structured
	// Synthesized means the draft was assembled from prose.
	Synthesized
)

func (k ParseKind) String() string {
	switch k {
	case Structured:
		return "structured"
	case Synthesized:
		return "synthesized"
	default:
		return "rejected"
	}
}

// Rules are the quality thresholds applied after parsing.
type Rules struct {
	MinChars int
	MinWords int
}

// DefaultRules are the thresholds used when none are configured.
var DefaultRules = Rules{MinChars: 100, MinWords: 80}

// DefaultCategory is used when the draft carries none.
const DefaultCategory = "IA Avanzada"

// maxSynthesizedRunes bounds the content of a draft built from prose.
const maxSynthesizedRunes = 1500

// ParseResult is the outcome of Parse. Err is nil only for a draft that
// passed every rule. ErrWordCountLow comes with the draft attached.
type ParseResult struct {
	Kind  ParseKind
	Draft *Draft
	Err   error
}

// Parse turns raw provider text into a draft. The first balanced JSON
// object in raw is decoded; when there is none and the provider is
// free-text only, a draft is synthesized from the text itself.
func Parse(raw, topic string, freeText bool, rules Rules) ParseResult {
	var (
		draft Draft
		kind  ParseKind
	)

	obj, found := extractObject(raw)
	switch {
	case found && json.Unmarshal([]byte(obj), &draft) == nil:
		kind = Structured
	case freeText:
		draft = synthesize(raw, topic)
		kind = Synthesized
	case found:
		return ParseResult{Kind: Rejected, Err: fmt.Errorf("%w: object does not decode", ErrNoJSON)}
	default:
		return ParseResult{Kind: Rejected, Err: ErrNoJSON}
	}

	draft.Title = strings.TrimSpace(draft.Title)
	draft.Content = strings.TrimSpace(draft.Content)
	if draft.Topic == "" {
		draft.Topic = topic
	}
	if strings.TrimSpace(draft.Category) == "" {
		draft.Category = DefaultCategory
	}

	if err := validate(&draft, rules); err != nil {
		if err == ErrWordCountLow {
			return ParseResult{Kind: kind, Draft: &draft, Err: err}
		}
		return ParseResult{Kind: Rejected, Draft: &draft, Err: err}
	}
	return ParseResult{Kind: kind, Draft: &draft}
}

// validate applies the length rules and replaces the provider's word count
// with a whitespace split of the content.
func validate(d *Draft, rules Rules) error {
	if d.Title == "" {
		return ErrMissingTitle
	}
	if d.Content == "" || utf8.RuneCountInString(d.Content) < rules.MinChars {
		return ErrContentTooShort
	}
	d.WordCount = CountWords(d.Content)
	if d.WordCount < rules.MinWords {
		return ErrWordCountLow
	}
	return nil
}

// CountWords counts whitespace-separated tokens.
func CountWords(s string) int {
	return len(strings.Fields(s))
}

// synthesize builds a draft from prose: the text becomes the content,
// truncated at a word boundary, and the title is derived from the topic.
func synthesize(raw, topic string) Draft {
	return Draft{
		Title:    synthesizedTitle(topic),
		Content:  truncateRunes(strings.TrimSpace(stripFences(raw)), maxSynthesizedRunes),
		Category: DefaultCategory,
		Topic:    topic,
	}
}

func synthesizedTitle(topic string) string {
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return "Novedades en Inteligencia Artificial"
	}
	return "Lo último en " + topic + ": tendencias y novedades"
}

// truncateRunes cuts s to at most n runes, backing off to the last space
// when one exists.
func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)[:n]
	cut := string(runes)
	if i := strings.LastIndexAny(cut, " \n\t"); i > 0 {
		cut = cut[:i]
	}
	return strings.TrimSpace(cut)
}

// stripFences removes a surrounding ```json ... ``` or ``` ... ``` block,
// which models often wrap their answers in.
func stripFences(s string) string {
	s = strings.TrimSpace(s)

	if after, found := strings.CutPrefix(s, "```json"); found {
		if idx := strings.LastIndex(after, "```"); idx >= 0 {
			after = after[:idx]
		}
		return strings.TrimSpace(after)
	}

	if after, found := strings.CutPrefix(s, "```"); found {
		if idx := strings.LastIndex(after, "```"); idx >= 0 {
			after = after[:idx]
		}
		return strings.TrimSpace(after)
	}

	return s
}

// extractObject returns the first balanced top-level {...} substring of s.
// Braces inside JSON strings are ignored.
func extractObject(s string) (string, bool) {
	s = stripFences(s)
	for start := strings.IndexByte(s, '{'); start >= 0; {
		if end := matchBrace(s, start); end > 0 {
			return s[start : end+1], true
		}
		next := strings.IndexByte(s[start+1:], '{')
		if next < 0 {
			break
		}
		start += next + 1
	}
	return "", false
}

// matchBrace returns the index of the '}' closing the '{' at start, or -1.
func matchBrace(s string, start int) int {
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

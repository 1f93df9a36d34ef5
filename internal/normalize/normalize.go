// Package normalize cleans raw article text ahead of fingerprinting and
// persistence. The pipeline is deterministic: identical input always
// produces identical output.
package normalize

import (
	"html"
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
	"golang.org/x/text/width"
)

var (
	tagRe        = regexp.MustCompile(`<[^>]+>`)
	spaceRe      = regexp.MustCompile(`[ \t]+`)
	blankLinesRe = regexp.MustCompile(`\n{3,}`)
	suffixRe     = regexp.MustCompile(`\s*[\-|｜]\s*[^\-|｜]+$`)
)

// Text runs the full normalization pipeline over body text:
// tag strip (paragraph breaks preserved), HTML entity unescape, whitespace
// collapse, Unicode NFKC, and full-width punctuation folding.
func Text(s string) string {
	if s == "" {
		return ""
	}
	// Tags come off before entity unescape: unescaping first would turn
	// encoded brackets ("&lt;p&gt;") into live tags and strip literal
	// text along with markup.
	s = stripTags(s)
	s = html.UnescapeString(s)
	s = spaceRe.ReplaceAllString(s, " ")
	s = blankLinesRe.ReplaceAllString(s, "\n\n")
	s = norm.NFKC.String(s)
	s = foldPunctuation(s)
	return strings.TrimSpace(s)
}

// Title normalizes an article title and strips a trailing
// " | Source Name" or " - Source Name" suffix when it names the source.
func Title(s, sourceName string) string {
	t := Text(s)
	if t == "" {
		return ""
	}
	if sourceName != "" {
		if stripped, ok := stripSourceSuffix(t, sourceName); ok {
			return stripped
		}
	}
	// Generic suffix desuffixing for patterns like "Title - Publisher Name".
	if m := suffixRe.FindStringIndex(t); m != nil && m[0] > 0 {
		tail := t[m[0]:]
		if looksLikePublisher(tail) {
			if head := strings.TrimSpace(t[:m[0]]); head != "" {
				return head
			}
		}
	}
	return t
}

func stripSourceSuffix(title, sourceName string) (string, bool) {
	lower := strings.ToLower(title)
	name := strings.ToLower(strings.TrimSpace(sourceName))
	for _, sep := range []string{"|", "-", "–", "—", "｜"} {
		idx := strings.LastIndex(lower, sep)
		if idx <= 0 {
			continue
		}
		if strings.TrimSpace(lower[idx+len(sep):]) == name {
			if head := strings.TrimSpace(title[:idx]); head != "" {
				return head, true
			}
		}
	}
	return title, false
}

// looksLikePublisher guards the generic desuffix against cutting real
// title content: the tail must start with an uppercase word and contain
// no digits.
func looksLikePublisher(tail string) bool {
	tail = strings.TrimLeft(tail, " -|｜–—")
	if tail == "" {
		return false
	}
	runes := []rune(tail)
	if !unicode.IsUpper(runes[0]) {
		return false
	}
	for _, r := range runes {
		if unicode.IsDigit(r) {
			return false
		}
	}
	return len(runes) <= 40
}

// stripTags removes HTML tags while keeping paragraph structure: block
// element boundaries become newlines before the generic tag strip.
func stripTags(s string) string {
	if !strings.Contains(s, "<") {
		return s
	}
	for _, tag := range []string{"</p>", "</div>", "<br>", "<br/>", "<br />", "</li>", "</h1>", "</h2>", "</h3>"} {
		s = strings.ReplaceAll(s, tag, tag+"\n")
	}
	return tagRe.ReplaceAllString(s, "")
}

// foldPunctuation maps full-width CJK punctuation to half-width ASCII so
// that mixed Chinese/English content fingerprints consistently.
func foldPunctuation(s string) string {
	if !strings.ContainsFunc(s, func(r rune) bool { return r > 0x2000 }) {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case unicode.Is(unicode.Han, r):
			// Keep ideographs untouched; width.Fold would not change them
			// but skipping them avoids surprising normalization of
			// compatibility ideographs already handled by NFKC.
			b.WriteRune(r)
		case r == '。':
			b.WriteRune('.')
		case r == '，':
			b.WriteRune(',')
		case r == '、':
			b.WriteRune(',')
		default:
			b.WriteString(width.Fold.String(string(r)))
		}
	}
	return b.String()
}

// DetectLanguage classifies text as "zh" when at least a tenth of its
// runes are Han ideographs, otherwise "en". The collection domain is
// bilingual, so a two-way split is sufficient.
func DetectLanguage(s string) string {
	if s == "" {
		return "en"
	}
	var han, total int
	for _, r := range s {
		if unicode.IsSpace(r) || unicode.IsPunct(r) {
			continue
		}
		total++
		if unicode.Is(unicode.Han, r) {
			han++
		}
	}
	if total > 0 && han*10 >= total {
		return "zh"
	}
	return "en"
}

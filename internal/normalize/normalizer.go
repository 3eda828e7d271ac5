package normalize

import (
	"regexp"
	"sort"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	punctPattern = regexp.MustCompile(`[^\p{L}\p{N}\s.,+x×]+`)
	multiSpace   = regexp.MustCompile(`\s+`)

	stripAccents = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
)

// translitTable is the streamlined Bulgarian Cyrillic to Latin mapping.
// Digraph letters first so they survive the rune-by-rune pass.
var translitTable = map[rune]string{
	'а': "a", 'б': "b", 'в': "v", 'г': "g", 'д': "d", 'е': "e",
	'ж': "zh", 'з': "z", 'и': "i", 'й': "y", 'к': "k", 'л': "l",
	'м': "m", 'н': "n", 'о': "o", 'п': "p", 'р': "r", 'с': "s",
	'т': "t", 'у': "u", 'ф': "f", 'х': "h", 'ц': "ts", 'ч': "ch",
	'ш': "sh", 'щ': "sht", 'ъ': "a", 'ь': "y", 'ю': "yu", 'я': "ya",
}

// Normalizer cleans titles and produces the comparison variants.
type Normalizer struct {
	promoPatterns []*regexp.Regexp
	stopwords     map[string]struct{}
	lexicon       []lexiconEntry // longest phrase first
	minTokenLen   int
}

type lexiconEntry struct {
	from string
	to   string
}

// New builds a normalizer from the configured dictionaries.
func New(promoPhrases, stopwords []string, lexicon map[string]string, minTokenLen int) *Normalizer {
	n := &Normalizer{
		stopwords:   make(map[string]struct{}, len(stopwords)),
		minTokenLen: minTokenLen,
	}
	if n.minTokenLen < 1 {
		n.minTokenLen = 2
	}

	for _, p := range promoPhrases {
		p = strings.ToLower(strings.TrimSpace(p))
		if p == "" {
			continue
		}
		n.promoPatterns = append(n.promoPatterns,
			regexp.MustCompile(`(^|\s)`+regexp.QuoteMeta(p)+`($|\s)`))
	}

	for _, w := range stopwords {
		n.stopwords[strings.ToLower(w)] = struct{}{}
	}

	for from, to := range lexicon {
		n.lexicon = append(n.lexicon, lexiconEntry{from: strings.ToLower(from), to: strings.ToLower(to)})
	}
	// Longer phrases substitute first so "кисело мляко" wins over "мляко".
	sort.Slice(n.lexicon, func(i, j int) bool {
		if len(n.lexicon[i].from) != len(n.lexicon[j].from) {
			return len(n.lexicon[i].from) > len(n.lexicon[j].from)
		}
		return n.lexicon[i].from < n.lexicon[j].from
	})

	return n
}

// Clean lowercases a title, strips promo phrases and Latin diacritics,
// collapses punctuation and whitespace. Pure and idempotent.
func (n *Normalizer) Clean(title string) string {
	s := strings.ToLower(title)
	s, _, _ = transform.String(stripAccents, s)

	for _, p := range n.promoPatterns {
		s = p.ReplaceAllString(s, " ")
	}

	s = punctPattern.ReplaceAllString(s, " ")
	s = multiSpace.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// Variants returns the retained comparison forms of a cleaned name:
// literal, transliterated, lexicon-substituted, and both combined.
// Duplicates collapse, order preserved; never empty for non-empty input.
func (n *Normalizer) Variants(cleaned string) []string {
	lexed := n.applyLexicon(cleaned)
	forms := []string{
		cleaned,
		Transliterate(cleaned),
		lexed,
		Transliterate(lexed),
	}

	seen := make(map[string]struct{}, len(forms))
	variants := make([]string, 0, len(forms))
	for _, f := range forms {
		f = strings.TrimSpace(multiSpace.ReplaceAllString(f, " "))
		if f == "" {
			continue
		}
		if _, ok := seen[f]; ok {
			continue
		}
		seen[f] = struct{}{}
		variants = append(variants, f)
	}
	return variants
}

// Tokenize splits a cleaned string into lowercase tokens, dropping
// stopwords and tokens shorter than the configured minimum.
func (n *Normalizer) Tokenize(s string) []string {
	fields := strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})

	tokens := make([]string, 0, len(fields))
	for _, f := range fields {
		if len([]rune(f)) < n.minTokenLen {
			continue
		}
		if _, stop := n.stopwords[f]; stop {
			continue
		}
		tokens = append(tokens, f)
	}
	return tokens
}

func (n *Normalizer) applyLexicon(s string) string {
	for _, e := range n.lexicon {
		if strings.Contains(s, e.from) {
			s = strings.ReplaceAll(s, e.from, e.to)
		}
	}
	return s
}

// Transliterate converts Bulgarian Cyrillic to Latin; other runes pass through.
func Transliterate(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if lat, ok := translitTable[r]; ok {
			b.WriteString(lat)
		} else {
			b.WriteRune(r)
		}
	}
	return b.String()
}

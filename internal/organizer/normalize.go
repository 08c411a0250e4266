package organizer

import (
	"net/url"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// pageExtensions are stripped from a segment before it is compared.
var pageExtensions = []string{".html", ".htm", ".php", ".aspx", ".asp", ".jsp", ".md"}

// rootSegments name the site root when used as a first segment.
var rootSegments = map[string]bool{
	"index":   true,
	"default": true,
	"home":    true,
}

// defaultAliases map normalized keys to a shared key.
var defaultAliases = map[string]string{
	"documentation": "doc",
	"docs":          "doc",
	"tutorials":     "tutorial",
	"howto":         "guide",
	"how to":        "guide",
}

// invariantWords are returned unchanged by singularization. Singular
// -us and -is words are listed here; their -ses plural folds back to them.
var invariantWords = map[string]bool{
	"news":       true,
	"series":     true,
	"species":    true,
	"status":     true,
	"bus":        true,
	"campus":     true,
	"corpus":     true,
	"virus":      true,
	"bonus":      true,
	"census":     true,
	"focus":      true,
	"radius":     true,
	"syllabus":   true,
	"prospectus": true,
	"analysis":   true,
	"basis":      true,
	"thesis":     true,
	"axis":       true,
	"canvas":     true,
	"kubernetes": true,
	"ios":        true,
	"aws":        true,
	"css":        true,
	"sass":       true,
	"os":         true,
	"gis":        true,
	"dns":        true,
	"this":       true,
	"plus":       true,
	"express":    true,
}

// ieWords end in -ie, so their plural takes -s rather than -ies from -y.
var ieWords = map[string]bool{
	"movie":    true,
	"cookie":   true,
	"pie":      true,
	"tie":      true,
	"lie":      true,
	"die":      true,
	"zombie":   true,
	"rookie":   true,
	"selfie":   true,
	"hoodie":   true,
	"goalie":   true,
	"calorie":  true,
	"genie":    true,
	"newbie":   true,
	"freebie":  true,
	"brownie":  true,
	"smoothie": true,
	"prairie":  true,
}

// cheWords end in -che, so their plural drops only the s.
var cheWords = map[string]bool{
	"cache":     true,
	"niche":     true,
	"avalanche": true,
	"headache":  true,
	"moustache": true,
	"mustache":  true,
	"quiche":    true,
	"psyche":    true,
	"creche":    true,
}

// irregularPlurals map plural words to their singular form.
var irregularPlurals = map[string]string{
	"people":   "person",
	"children": "child",
	"indices":  "index",
	"matrices": "matrix",
	"analyses": "analysis",
	"theses":   "thesis",
	"axes":     "axis",
	"data":     "data",
}

// acronyms are displayed in upper case.
var acronyms = map[string]string{
	"api":  "API",
	"apis": "APIs",
	"faq":  "FAQ",
	"faqs": "FAQs",
	"cli":  "CLI",
	"sdk":  "SDK",
	"sdks": "SDKs",
	"ui":   "UI",
	"ux":   "UX",
	"url":  "URL",
	"http": "HTTP",
	"json": "JSON",
	"xml":  "XML",
	"html": "HTML",
	"css":  "CSS",
	"sql":  "SQL",
	"rss":  "RSS",
	"ai":   "AI",
	"ml":   "ML",
	"io":   "IO",
	"id":   "ID",
	"aws":  "AWS",
	"gcp":  "GCP",
	"dns":  "DNS",
	"ios":  "iOS",
}

// Normalizer turns path segments into module keys and display names.
type Normalizer struct {
	aliases map[string]string
}

// NewNormalizer returns a Normalizer. Extra aliases are applied after the
// built-in table and may override it. Alias keys and values are normalized
// the same way segments are.
func NewNormalizer(aliases map[string]string) *Normalizer {
	n := &Normalizer{
		aliases: make(map[string]string, len(defaultAliases)+len(aliases)),
	}
	for k, v := range defaultAliases {
		n.aliases[k] = v
	}
	for k, v := range aliases {
		from := clean(k)
		to := clean(v)
		if from == "" || to == "" {
			continue
		}
		n.aliases[from] = singularize(to)
	}
	return n
}

// Key returns the grouping key for a segment. An empty key means the
// segment belongs to the root module.
func (n *Normalizer) Key(segment string) string {
	c := clean(segment)
	if c == "" || rootSegments[c] {
		return ""
	}
	if alias, ok := n.aliases[c]; ok {
		return alias
	}
	key := singularize(c)
	if alias, ok := n.aliases[key]; ok {
		return alias
	}
	return key
}

// DisplayName returns the human-readable name of a segment, e.g.
// "getting-started" becomes "Getting Started" and "api" becomes "API".
func (n *Normalizer) DisplayName(segment string) string {
	words := strings.Fields(clean(segment))
	title := cases.Title(language.English)
	for i, w := range words {
		if a, ok := acronyms[w]; ok {
			words[i] = a
			continue
		}
		words[i] = title.String(w)
	}
	return strings.Join(words, " ")
}

// clean unescapes and lowercases a segment, strips page extensions and
// turns separators into single spaces.
func clean(segment string) string {
	s, err := url.PathUnescape(segment)
	if err != nil {
		s = segment
	}
	s = strings.ToLower(strings.TrimSpace(s))
	for _, ext := range pageExtensions {
		if trimmed, ok := strings.CutSuffix(s, ext); ok {
			s = trimmed
			break
		}
	}
	s = strings.Map(func(r rune) rune {
		switch r {
		case '-', '_', '.', '+':
			return ' '
		}
		return r
	}, s)
	return strings.Join(strings.Fields(s), " ")
}

// singularize reduces the last word of a key to its singular form.
func singularize(key string) string {
	head, last := "", key
	if i := strings.LastIndexByte(key, ' '); i >= 0 {
		head, last = key[:i+1], key[i+1:]
	}
	return head + singularWord(last)
}

// singularWord maps a plural word to its singular. A singular word maps to
// itself, so both forms of a word yield the same key.
func singularWord(w string) string {
	if invariantWords[w] {
		return w
	}
	if s, ok := irregularPlurals[w]; ok {
		return s
	}
	if len(w) <= 3 {
		return w
	}
	switch {
	case strings.HasSuffix(w, "ses") && invariantWords[w[:len(w)-2]]:
		return w[:len(w)-2]
	case strings.HasSuffix(w, "ies"):
		if ieWords[w[:len(w)-1]] {
			return w[:len(w)-1]
		}
		return w[:len(w)-3] + "y"
	case strings.HasSuffix(w, "ches") && cheWords[w[:len(w)-1]]:
		return w[:len(w)-1]
	case strings.HasSuffix(w, "sses"),
		strings.HasSuffix(w, "xes"),
		strings.HasSuffix(w, "ches"),
		strings.HasSuffix(w, "shes"):
		return w[:len(w)-2]
	case strings.HasSuffix(w, "ss"):
		return w
	case strings.HasSuffix(w, "s"):
		return w[:len(w)-1]
	}
	return w
}

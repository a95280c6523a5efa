// Package tagging derives call tags from transcript text using configured
// keyword rules. Matching is deliberately dumb: lowercase substring scan over
// the joined segment text. Good enough to surface "gift card" and "bitcoin"
// calls without an NLP dependency.
package tagging

import "strings"

// Rule maps a tag to the keywords that trigger it. Any single keyword hit
// applies the tag.
type Rule struct {
	Tag      string   `json:"tag" yaml:"tag"`
	Keywords []string `json:"keywords" yaml:"keywords"`
}

// DefaultRules covers the scam scripts we see most often.
func DefaultRules() []Rule {
	return []Rule{
		{Tag: "gift-card", Keywords: []string{"gift card", "itunes", "google play card", "steam card"}},
		{Tag: "crypto", Keywords: []string{"bitcoin", "crypto", "ethereum", "btc machine"}},
		{Tag: "irs", Keywords: []string{"irs", "tax fraud", "arrest warrant", "back taxes"}},
		{Tag: "tech-support", Keywords: []string{"remote access", "anydesk", "teamviewer", "your computer"}},
		{Tag: "refund", Keywords: []string{"refund", "overcharged", "reimbursement"}},
		{Tag: "bank", Keywords: []string{"wire transfer", "routing number", "western union", "moneygram"}},
	}
}

// Tagger implements keyword tagging over a fixed rule set. The zero value
// matches nothing; construct with New.
type Tagger struct {
	rules []compiledRule
}

type compiledRule struct {
	tag      string
	keywords []string
}

// New builds a Tagger from rules. Empty tags and empty keywords are dropped;
// keywords are lowercased once here so Tags stays allocation-light.
func New(rules []Rule) *Tagger {
	t := &Tagger{}
	for _, r := range rules {
		tag := strings.ToLower(strings.TrimSpace(r.Tag))
		if tag == "" {
			continue
		}
		cr := compiledRule{tag: tag}
		for _, kw := range r.Keywords {
			kw = strings.ToLower(strings.TrimSpace(kw))
			if kw != "" {
				cr.keywords = append(cr.keywords, kw)
			}
		}
		if len(cr.keywords) > 0 {
			t.rules = append(t.rules, cr)
		}
	}
	return t
}

// Tags returns the tags whose keywords occur in text, in rule order, deduped.
func (t *Tagger) Tags(text string) []string {
	if t == nil || len(t.rules) == 0 || text == "" {
		return nil
	}
	haystack := strings.ToLower(text)
	var out []string
	seen := make(map[string]struct{}, len(t.rules))
	for _, r := range t.rules {
		if _, ok := seen[r.tag]; ok {
			continue
		}
		for _, kw := range r.keywords {
			if strings.Contains(haystack, kw) {
				out = append(out, r.tag)
				seen[r.tag] = struct{}{}
				break
			}
		}
	}
	return out
}

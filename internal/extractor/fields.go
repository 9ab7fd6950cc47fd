// Package extractor turns business registry HTML into typed records.
// Everything here is pure: no I/O, no shared state, safe for concurrent use.
package extractor

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

const (
	CategoryBusinessName        = "Business Name"
	CategorySoleProprietorship  = "Sole Proprietorship"
	CategoryBusinessActivity    = "Business Activity"
	CategoryUnknown             = "Unknown"
	registrationStatusSeparator = "∙"
)

// iconCategories is checked in order; the first key found as a substring
// of the card's icon class wins.
var iconCategories = []struct {
	iconClass string
	category  string
}{
	{"icon_set_1_icon-9", CategoryBusinessName},
	{"icon_set_1_icon-29", CategorySoleProprietorship},
	{"icon_set_1_icon-43", CategoryBusinessActivity},
}

// upnPrefixes mark a banner text node as a UPN.
var upnPrefixes = []string{"SP", "PV", "BN"}

var (
	businessIDPattern  = regexp.MustCompile(`/ViewDetails/(\d+)`)
	searchQueryPattern = regexp.MustCompile(`Search result for ['"]([^'"]+)['"]`)
)

// OwnTexts returns the direct child text nodes of every node in sel, in
// document order and untrimmed.
func OwnTexts(sel *goquery.Selection) []string {
	var out []string
	for _, n := range sel.Nodes {
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if c.Type == html.TextNode {
				out = append(out, c.Data)
			}
		}
	}
	return out
}

// AllTexts returns every descendant text node of sel in document order.
func AllTexts(sel *goquery.Selection) []string {
	var out []string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			out = append(out, n.Data)
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	for _, n := range sel.Nodes {
		walk(n)
	}
	return out
}

// FirstText returns the first non-blank direct text of any element matching
// selector under root, trimmed. It returns nil when nothing matches.
func FirstText(root *goquery.Selection, selector string) *string {
	return firstNonBlank(OwnTexts(root.Find(selector)))
}

// FirstDeepText is FirstText over all descendant text nodes of sel itself.
func FirstDeepText(sel *goquery.Selection) *string {
	return firstNonBlank(AllTexts(sel))
}

// nonBlank trims texts and drops the ones left empty.
func nonBlank(texts []string) []string {
	out := make([]string, 0, len(texts))
	for _, t := range texts {
		if t = strings.TrimSpace(t); t != "" {
			out = append(out, t)
		}
	}
	return out
}

func firstNonBlank(texts []string) *string {
	for _, t := range texts {
		if s := OptionalString(t); s != nil {
			return s
		}
	}
	return nil
}

// OptionalString trims s and returns nil when nothing is left.
func OptionalString(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

// StringOrEmpty dereferences s, treating nil as "".
func StringOrEmpty(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// StripBrackets removes surrounding brackets and whitespace: "[X]" -> "X".
func StripBrackets(s string) string {
	return strings.Trim(s, "[] \t\r\n")
}

// StripLabel removes a leading label and its separator:
// StripLabel("SME Classification: Small", "SME Classification") -> "Small".
func StripLabel(s, label string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, label) {
		s = strings.TrimLeft(s[len(label):], ": \t")
	}
	return strings.TrimSpace(s)
}

// StripTrailingSeparator removes a trailing separator (and the spaces around
// it) from a concatenated text node: "C-0421/2015 ∙ " -> "C-0421/2015".
func StripTrailingSeparator(s, sep string) string {
	return strings.TrimSpace(strings.TrimRight(strings.TrimSpace(s), sep+" \t"))
}

// ExtractBusinessID returns the digits following "/ViewDetails/" in a URL
// or path, or nil when the marker or digits are missing.
func ExtractBusinessID(s string) *string {
	m := businessIDPattern.FindStringSubmatch(s)
	if m == nil {
		return nil
	}
	id := m[1]
	return &id
}

// MapIconToCategory maps a card's icon class attribute to a business
// category. The mapping is total: unmatched classes yield CategoryUnknown.
func MapIconToCategory(iconClass string) string {
	for _, ic := range iconCategories {
		if strings.Contains(iconClass, ic.iconClass) {
			return ic.category
		}
	}
	return CategoryUnknown
}

// IsUPN reports whether a banner text node looks like a UPN.
func IsUPN(text string) bool {
	text = strings.TrimSpace(text)
	if len(text) <= 10 {
		return false
	}
	for _, p := range upnPrefixes {
		if strings.HasPrefix(text, p) {
			return true
		}
	}
	return false
}

// ParseSearchQuery pulls X out of "Search result for 'X'".
func ParseSearchQuery(text string) *string {
	m := searchQueryPattern.FindStringSubmatch(text)
	if m == nil {
		return nil
	}
	q := m[1]
	return &q
}

package extractor

import (
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
)

func strPtr(s string) *string { return &s }

func equalPtr(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func show(s *string) string {
	if s == nil {
		return "<nil>"
	}
	return *s
}

func TestExtractBusinessID(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want *string
	}{
		{"path with key", "/BusinessRegistry/ViewDetails/217847?key=-706503270", strPtr("217847")},
		{"absolute url", "https://business.egov.mv/BusinessRegistry/ViewDetails/300001?key=42", strPtr("300001")},
		{"no marker", "/BusinessRegistry/SearchBusinessRegistry", nil},
		{"marker without digits", "/BusinessRegistry/ViewDetails/abc", nil},
		{"empty", "", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExtractBusinessID(tt.in); !equalPtr(got, tt.want) {
				t.Errorf("ExtractBusinessID(%q) = %s, want %s", tt.in, show(got), show(tt.want))
			}
		})
	}
}

func TestMapIconToCategory(t *testing.T) {
	tests := []struct {
		iconClass string
		want      string
	}{
		{"icon_set_1_icon-9", CategoryBusinessName},
		{"icon_set_1_icon-29", CategorySoleProprietorship},
		{"icon_set_1_icon-43", CategoryBusinessActivity},
		{"pull-left icon_set_1_icon-29 large", CategorySoleProprietorship},
		{"icon_set_1_icon-77", CategoryUnknown},
		{"", CategoryUnknown},
		{"fa fa-building", CategoryUnknown},
	}
	allowed := map[string]bool{
		CategoryBusinessName:       true,
		CategorySoleProprietorship: true,
		CategoryBusinessActivity:   true,
		CategoryUnknown:            true,
	}
	for _, tt := range tests {
		got := MapIconToCategory(tt.iconClass)
		if got != tt.want {
			t.Errorf("MapIconToCategory(%q) = %q, want %q", tt.iconClass, got, tt.want)
		}
		if !allowed[got] {
			t.Errorf("MapIconToCategory(%q) returned unmapped category %q", tt.iconClass, got)
		}
	}
}

func TestCleaningHelpers(t *testing.T) {
	if got := StripBrackets("[Private Company]"); got != "Private Company" {
		t.Errorf("StripBrackets = %q", got)
	}
	if got := StripBrackets(" [ Sole Proprietorship ] "); got != "Sole Proprietorship" {
		t.Errorf("StripBrackets with spaces = %q", got)
	}
	if got := StripLabel("SME Classification: Small", "SME Classification"); got != "Small" {
		t.Errorf("StripLabel = %q", got)
	}
	if got := StripLabel("Medium", "SME Classification"); got != "Medium" {
		t.Errorf("StripLabel without label = %q", got)
	}
	if got := StripTrailingSeparator("C-0421/2015 ∙ ", "∙"); got != "C-0421/2015" {
		t.Errorf("StripTrailingSeparator = %q", got)
	}
	if got := OptionalString("   "); got != nil {
		t.Errorf("OptionalString(blank) = %q, want nil", *got)
	}
}

func TestIsUPN(t *testing.T) {
	tests := map[string]bool{
		"PV-20150421-0042":   true,
		" SP-20190312-0099 ": true,
		"BN-2019":            false, // too short
		"C-0421/2015 ∙":      false,
		"XPV-20150421-0042":  false,
	}
	for in, want := range tests {
		if got := IsUPN(in); got != want {
			t.Errorf("IsUPN(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestFirstText(t *testing.T) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(
		`<div><p class="a">  <b>bold</b> first </p><p class="a">second</p></div>`))
	if err != nil {
		t.Fatal(err)
	}
	root := doc.Selection
	if got := FirstText(root, "p.a"); !equalPtr(got, strPtr("first")) {
		t.Errorf("FirstText = %s, want first", show(got))
	}
	if got := FirstText(root, "p.missing"); got != nil {
		t.Errorf("FirstText on missing = %s, want nil", show(got))
	}
	if got := FirstDeepText(root.Find("p.a").First()); !equalPtr(got, strPtr("bold")) {
		t.Errorf("FirstDeepText = %s, want bold", show(got))
	}
}

func TestParseSearchQuery(t *testing.T) {
	if got := ParseSearchQuery("Search result for 'Example Co'"); !equalPtr(got, strPtr("Example Co")) {
		t.Errorf("single quotes: %s", show(got))
	}
	if got := ParseSearchQuery(`Search result for "Example Co"`); !equalPtr(got, strPtr("Example Co")) {
		t.Errorf("double quotes: %s", show(got))
	}
	if got := ParseSearchQuery("No results"); got != nil {
		t.Errorf("no match: %s", show(got))
	}
}

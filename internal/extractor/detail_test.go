package extractor

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/user/registry-crawler/internal/entity"
	"go.uber.org/zap"
)

const (
	soleDetailURL    = "https://business.egov.mv/BusinessRegistry/ViewDetails/217847?key=-706503270"
	companyDetailURL = "https://business.egov.mv/BusinessRegistry/ViewDetails/100042?key=5"
)

func extractDetail(t *testing.T, fixture, url string) *entity.BusinessDetail {
	t.Helper()
	res := NewDetailExtractor(zap.NewNop()).Extract(readFixture(t, fixture), url)
	if !res.OK() {
		t.Fatalf("Extract failed: %+v", res.Failure)
	}
	return res.Detail
}

func assertCounts(t *testing.T, d *entity.BusinessDetail) {
	t.Helper()
	if d.BoardOfDirectorsCount != len(d.BoardOfDirectors) ||
		d.ShareholdersCount != len(d.Shareholders) ||
		d.BusinessNamesCount != len(d.BusinessNames) ||
		d.BusinessActivityCount != len(d.BusinessActivities) {
		t.Errorf("counts out of sync with lists: %+v", d)
	}
}

func TestDetailExtractor_SoleProprietorship(t *testing.T) {
	d := extractDetail(t, "detail_sole_proprietorship.html", soleDetailURL)

	checks := []struct {
		field string
		got   *string
		want  *string
	}{
		{"business_id", d.BusinessID, strPtr("217847")},
		{"business_name", d.BusinessName, strPtr("Example Co")},
		{"business_type", d.BusinessType, strPtr("Sole Proprietorship")},
		{"address", d.Address, strPtr("H. Example House, Majeedhee Magu, Male'")},
		{"registration_number", d.RegistrationNumber, strPtr("SP-1234/2019")},
		{"status", d.Status, strPtr("Registered")},
		{"upn", d.UPN, strPtr("SP-20190312-0099")},
		{"sme_classification", d.SMEClassification, strPtr("Micro")},
		{"owner", d.Owner, strPtr("Aishath Example")},
		{"managing_director", d.ManagingDirector, nil},
		{"permits.message", d.Permits.Message, strPtr("Does not have any permits")},
		{"licenses.message", d.Licenses.Message, strPtr("Does not have any licenses")},
	}
	for _, c := range checks {
		t.Run(c.field, func(t *testing.T) {
			if !equalPtr(c.got, c.want) {
				t.Errorf("%s = %s, want %s", c.field, show(c.got), show(c.want))
			}
		})
	}

	if d.PageType != entity.PageTypeBusinessDetail || d.DetailURL != soleDetailURL {
		t.Errorf("page_type/detail_url = %q/%q", d.PageType, d.DetailURL)
	}
	if len(d.BusinessNames) != 2 {
		t.Fatalf("business names = %d, want 2 (short row skipped)", len(d.BusinessNames))
	}
	if got := d.BusinessNames[1]; got.Name != "Example Co Store" || got.UPN != "BN-20210101-0003" {
		t.Errorf("business names[1] = %+v", got)
	}
	if len(d.BusinessActivities) != 2 {
		t.Fatalf("activities = %d, want 2", len(d.BusinessActivities))
	}
	if d.BusinessActivities[0].ExpiryDate != nil {
		t.Errorf("expiry \"-\" should be absent, got %s", show(d.BusinessActivities[0].ExpiryDate))
	}
	if !equalPtr(d.BusinessActivities[1].ExpiryDate, strPtr("31/12/2025")) {
		t.Errorf("activities[1].expiry = %s", show(d.BusinessActivities[1].ExpiryDate))
	}
	if len(d.BoardOfDirectors) != 0 || len(d.Shareholders) != 0 {
		t.Errorf("sole proprietorship should have no directors or shareholders")
	}
	if d.Permits.HasPermits || len(d.Permits.PermitsList) != 0 {
		t.Errorf("permits = %+v", d.Permits)
	}
	assertCounts(t, d)
}

func TestDetailExtractor_Company(t *testing.T) {
	d := extractDetail(t, "detail_company.html", companyDetailURL)

	checks := []struct {
		field string
		got   *string
		want  *string
	}{
		{"business_id", d.BusinessID, strPtr("100042")},
		{"business_name", d.BusinessName, strPtr("Example Holdings Pvt Ltd")},
		{"business_type", d.BusinessType, strPtr("Private Company")},
		{"address", d.Address, strPtr("M. Sample Building, Boduthakurufaanu Magu, Male'")},
		{"registration_number", d.RegistrationNumber, strPtr("C-0421/2015")},
		{"status", d.Status, strPtr("Registered")},
		{"upn", d.UPN, strPtr("PV-20150421-0042")},
		{"sme_classification", d.SMEClassification, strPtr("Small")},
		{"owner", d.Owner, nil},
		{"managing_director", d.ManagingDirector, strPtr("Ahmed Example")},
		{"licenses.message", d.Licenses.Message, strPtr("Tourism licence register available on request")},
	}
	for _, c := range checks {
		t.Run(c.field, func(t *testing.T) {
			if !equalPtr(c.got, c.want) {
				t.Errorf("%s = %s, want %s", c.field, show(c.got), show(c.want))
			}
		})
	}

	wantDirectors := []entity.DirectorRow{
		{Name: "Ahmed Example", AppointedDate: "01/02/2015"},
		{Name: "Mariyam Sample", AppointedDate: "15/06/2018"},
	}
	if len(d.BoardOfDirectors) != len(wantDirectors) {
		t.Fatalf("directors = %+v", d.BoardOfDirectors)
	}
	for i, w := range wantDirectors {
		if d.BoardOfDirectors[i] != w {
			t.Errorf("directors[%d] = %+v, want %+v", i, d.BoardOfDirectors[i], w)
		}
	}
	if len(d.Shareholders) != 1 || d.Shareholders[0].JoinDate != "01/02/2015" {
		t.Errorf("shareholders = %+v", d.Shareholders)
	}
	if len(d.BusinessActivities) != 0 {
		t.Errorf("activity rows with fewer than 7 cells must be skipped, got %d", len(d.BusinessActivities))
	}
	assertCounts(t, d)
}

func TestDetailExtractor_OwnerAndManagingDirector(t *testing.T) {
	page := `<html><body>
<section class="businessRegistryBanner"><h1 class="name">Dual Co <span>[Partnership]</span></h1></section>
<div class="form_title"><h3>Owner</h3><p>First Person</p></div>
<div class="form_title"><h3>Managing Director</h3><p>Second Person</p></div>
</body></html>`
	res := NewDetailExtractor(zap.NewNop()).Extract(page, soleDetailURL)
	if !res.OK() {
		t.Fatalf("Extract failed: %+v", res.Failure)
	}
	if !equalPtr(res.Detail.Owner, strPtr("First Person")) {
		t.Errorf("owner = %s", show(res.Detail.Owner))
	}
	if !equalPtr(res.Detail.ManagingDirector, strPtr("Second Person")) {
		t.Errorf("managing_director = %s", show(res.Detail.ManagingDirector))
	}
	if res.Detail.Address != nil || res.Detail.UPN != nil {
		t.Errorf("missing banner fields should be absent")
	}
}

func TestDetailExtractor_Idempotent(t *testing.T) {
	e := NewDetailExtractor(zap.NewNop())
	page := readFixture(t, "detail_company.html")

	first, err := json.Marshal(e.Extract(page, companyDetailURL).Record())
	if err != nil {
		t.Fatal(err)
	}
	second, err := json.Marshal(e.Extract(page, companyDetailURL).Record())
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(first, second) {
		t.Errorf("extraction not deterministic:\n%s\n%s", first, second)
	}
}

func TestDetailExtractor_NeverPanics(t *testing.T) {
	e := NewDetailExtractor(zap.NewNop())
	for _, page := range []string{"", "<<<>>>", "<html><body><table><tr><td></table>", "\x00\xff"} {
		res := e.Extract(page, "not a url")
		if res.Record() == nil {
			t.Errorf("Extract(%q) returned no record", page)
		}
		if res.OK() && res.Detail.BusinessName != nil {
			t.Errorf("Extract(%q) invented a business name %q", page, *res.Detail.BusinessName)
		}
	}
}

func TestDetailExtractor_SectionPanicBecomesErrorRecord(t *testing.T) {
	sections := append([]detailSection{}, defaultDetailSections...)
	sections = append(sections, detailSection{"broken", func(*goquery.Document, *entity.BusinessDetail) {
		panic("unexpected markup")
	}})
	e := &DetailExtractor{sections: sections, logger: zap.NewNop()}

	page := readFixture(t, "detail_sole_proprietorship.html")
	res := e.Extract(page, soleDetailURL)
	if res.OK() || res.Failure == nil {
		t.Fatalf("expected failure, got %+v", res.Detail)
	}
	f := res.Failure
	if f.Error == "" {
		t.Error("error message is empty")
	}
	if f.RawHTML != page || f.HTMLLength != len(page) {
		t.Errorf("raw html not preserved: len %d vs %d", f.HTMLLength, len(page))
	}
	if f.PageType != entity.PageTypeDetailError || f.DetailURL != soleDetailURL {
		t.Errorf("page_type/detail_url = %q/%q", f.PageType, f.DetailURL)
	}
	if !equalPtr(f.BusinessID, strPtr("217847")) {
		t.Errorf("business_id = %s", show(f.BusinessID))
	}
}

func TestNewErrorRecord_DefaultMessage(t *testing.T) {
	rec := NewErrorRecord(nil, "<html></html>", companyDetailURL)
	if rec.Error != "unknown extraction error" {
		t.Errorf("Error = %q", rec.Error)
	}
	if rec.HTMLLength != len("<html></html>") {
		t.Errorf("HTMLLength = %d", rec.HTMLLength)
	}
}

func TestDetailExtractor_SectionHeadingMustMatchExactly(t *testing.T) {
	d := extractDetail(t, "detail_beneficial_owners.html", companyDetailURL)

	if d.Owner != nil {
		t.Errorf("owner = %s, a Beneficial Owners section is not an Owner section", show(d.Owner))
	}
	if !equalPtr(d.ManagingDirector, strPtr("Mariyam Example")) {
		t.Errorf("managing_director = %s", show(d.ManagingDirector))
	}
	if !equalPtr(d.Permits.Message, strPtr("Does not have any permits")) {
		t.Errorf("permits message = %s", show(d.Permits.Message))
	}
	if d.Licenses.Message != nil {
		t.Errorf("licenses message = %s, want absent", show(d.Licenses.Message))
	}
}

package extractor

import (
	"fmt"
	"runtime/debug"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/user/registry-crawler/internal/entity"
	"go.uber.org/zap"
)

const (
	bannerSelector           = ".businessRegistryBanner"
	sectionSelector          = "div.form_title"
	directorsRowSelector     = "#homepage-board-directors-list tbody tr"
	shareholdersRowSelector  = "#homepage-shareholders-list tbody tr"
	businessNamesRowSelector = "#homepage-bn-list tbody tr"
	activitiesRowSelector    = "#homepage-business-activity-list tbody tr"
	ownerSectionTitle        = "Owner"
	managingDirectorTitle    = "Managing Director"
	permitsSectionTitle      = "Permits"
	licensesSectionTitle     = "Licenses"
	smeClassificationLabel   = "SME Classification"
)

// detailSection fills one part of a business detail. Absence of the
// section's markup is not an error; the fields stay nil or empty.
type detailSection struct {
	name  string
	apply func(doc *goquery.Document, d *entity.BusinessDetail)
}

var defaultDetailSections = []detailSection{
	{"banner", extractBanner},
	{"owner", extractOwner},
	{"managing_director", extractManagingDirector},
	{"board_of_directors", extractDirectors},
	{"shareholders", extractShareholders},
	{"business_names", extractBusinessNames},
	{"business_activities", extractActivities},
	{"permits", extractPermits},
	{"licenses", extractLicenses},
}

// DetailExtractor parses business detail pages.
type DetailExtractor struct {
	sections []detailSection
	logger   *zap.Logger
}

func NewDetailExtractor(logger *zap.Logger) *DetailExtractor {
	return &DetailExtractor{
		sections: defaultDetailSections,
		logger:   logger.Named("detail_extractor"),
	}
}

// Extract parses one detail page. It never panics: any failure is returned
// as an ErrorRecord that carries the raw page.
func (e *DetailExtractor) Extract(htmlContent, sourceURL string) (result entity.DetailResult) {
	section := "parse"
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("error extracting business details",
				zap.String("detail_url", sourceURL), zap.String("section", section),
				zap.Any("panic", r), zap.ByteString("stack", debug.Stack()))
			result = entity.DetailResult{Failure: NewErrorRecord(
				fmt.Errorf("extract %s section: %v", section, r), htmlContent, sourceURL)}
		}
	}()

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(htmlContent))
	if err != nil {
		e.logger.Error("error parsing detail page", zap.String("detail_url", sourceURL), zap.Error(err))
		return entity.DetailResult{Failure: NewErrorRecord(err, htmlContent, sourceURL)}
	}

	d := entity.NewBusinessDetail(sourceURL)
	d.BusinessID = ExtractBusinessID(sourceURL)
	for _, s := range e.sections {
		section = s.name
		s.apply(doc, d)
	}
	d.SyncCounts()
	return entity.DetailResult{Detail: d}
}

// NewErrorRecord builds the record emitted in place of a detail that could
// not be extracted.
func NewErrorRecord(err error, htmlContent, sourceURL string) *entity.ErrorRecord {
	msg := "unknown extraction error"
	if err != nil && err.Error() != "" {
		msg = err.Error()
	}
	return &entity.ErrorRecord{
		Error:      msg,
		DetailURL:  sourceURL,
		PageType:   entity.PageTypeDetailError,
		BusinessID: ExtractBusinessID(sourceURL),
		RawHTML:    htmlContent,
		HTMLLength: len(htmlContent),
	}
}

func extractBanner(doc *goquery.Document, d *entity.BusinessDetail) {
	banner := doc.Find(bannerSelector)
	nameEl := banner.Find("h1.name")

	d.BusinessName = firstNonBlank(OwnTexts(nameEl))
	if t := FirstText(nameEl, "span"); t != nil {
		d.BusinessType = OptionalString(StripBrackets(*t))
	}
	d.Address = FirstText(banner, "p.address")

	// The first p.number carries "<registration> ∙ <span>status</span>".
	numbers := banner.Find("p.number")
	combined := firstNonBlank(AllTexts(numbers.First()))
	if combined != nil {
		reg, status, _ := strings.Cut(*combined, registrationStatusSeparator)
		d.RegistrationNumber = OptionalString(StripTrailingSeparator(reg, registrationStatusSeparator))
		d.Status = OptionalString(status)
	}
	if st := FirstText(numbers.First(), "span"); st != nil {
		d.Status = st
	}

	for _, text := range OwnTexts(numbers) {
		if combined != nil && strings.TrimSpace(text) == *combined {
			continue
		}
		if IsUPN(text) {
			d.UPN = OptionalString(text)
			break
		}
	}

	if sme := FirstText(banner, "p.smeClassification"); sme != nil {
		d.SMEClassification = OptionalString(StripLabel(*sme, smeClassificationLabel))
	}
}

// findSections returns the labelled sections whose heading is title,
// ignoring case and whitespace. The heading is the section's text without
// its paragraph content, so "Beneficial Owners" is not an "Owner" section.
func findSections(doc *goquery.Document, title string) *goquery.Selection {
	return doc.Find(sectionSelector).FilterFunction(func(_ int, s *goquery.Selection) bool {
		heading := s.Clone()
		heading.Find("p").Remove()
		return strings.EqualFold(strings.Join(strings.Fields(heading.Text()), " "), title)
	})
}

func extractOwner(doc *goquery.Document, d *entity.BusinessDetail) {
	d.Owner = FirstText(findSections(doc, ownerSectionTitle), "p")
}

func extractManagingDirector(doc *goquery.Document, d *entity.BusinessDetail) {
	d.ManagingDirector = FirstText(findSections(doc, managingDirectorTitle), "p")
}

// projectRows maps every table row with at least minCells cells through
// build. Shorter rows are skipped.
func projectRows[T any](doc *goquery.Document, rowSelector string, minCells int, build func(cells []*string) T) []T {
	rows := []T{}
	doc.Find(rowSelector).Each(func(_ int, row *goquery.Selection) {
		tds := row.Find("td")
		if tds.Length() < minCells {
			return
		}
		cells := make([]*string, 0, tds.Length())
		tds.Each(func(_ int, td *goquery.Selection) {
			cells = append(cells, FirstDeepText(td))
		})
		rows = append(rows, build(cells))
	})
	return rows
}

func extractDirectors(doc *goquery.Document, d *entity.BusinessDetail) {
	d.BoardOfDirectors = projectRows(doc, directorsRowSelector, 2, func(c []*string) entity.DirectorRow {
		return entity.DirectorRow{Name: StringOrEmpty(c[0]), AppointedDate: StringOrEmpty(c[1])}
	})
}

func extractShareholders(doc *goquery.Document, d *entity.BusinessDetail) {
	d.Shareholders = projectRows(doc, shareholdersRowSelector, 2, func(c []*string) entity.ShareholderRow {
		return entity.ShareholderRow{Name: StringOrEmpty(c[0]), JoinDate: StringOrEmpty(c[1])}
	})
}

func extractBusinessNames(doc *goquery.Document, d *entity.BusinessDetail) {
	d.BusinessNames = projectRows(doc, businessNamesRowSelector, 3, func(c []*string) entity.BusinessNameRow {
		return entity.BusinessNameRow{Name: StringOrEmpty(c[0]), Number: StringOrEmpty(c[1]), UPN: StringOrEmpty(c[2])}
	})
}

func extractActivities(doc *goquery.Document, d *entity.BusinessDetail) {
	d.BusinessActivities = projectRows(doc, activitiesRowSelector, 7, func(c []*string) entity.ActivityRow {
		expiry := c[4]
		if expiry != nil && *expiry == "-" {
			expiry = nil
		}
		return entity.ActivityRow{
			Number:              c[0],
			ActivityDescription: c[1],
			State:               c[2],
			IssuedDate:          c[3],
			ExpiryDate:          expiry,
			BusinessName:        c[5],
			Address:             c[6],
		}
	})
}

// sectionMessage reads the first paragraph of the block that follows the
// titled section.
func sectionMessage(doc *goquery.Document, title string) *string {
	body := findSections(doc, title).First().NextAllFiltered("div").First()
	return FirstText(body, "p")
}

// Permit and licence tables are not parsed; only the "none" message is kept.
func extractPermits(doc *goquery.Document, d *entity.BusinessDetail) {
	d.Permits = entity.PermitsInfo{
		HasPermits:  false,
		Message:     sectionMessage(doc, permitsSectionTitle),
		PermitsList: []map[string]string{},
	}
}

func extractLicenses(doc *goquery.Document, d *entity.BusinessDetail) {
	d.Licenses = entity.LicensesInfo{
		HasLicenses:  false,
		Message:      sectionMessage(doc, licensesSectionTitle),
		LicensesList: []map[string]string{},
	}
}

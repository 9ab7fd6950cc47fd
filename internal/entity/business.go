package entity

import "time"

const (
	PageTypeBusinessDetail = "business_detail"
	PageTypeDetailError    = "detail_page_error"
)

// DirectorRow is one row of the board of directors table.
type DirectorRow struct {
	Name          string `json:"name"`
	AppointedDate string `json:"appointed_date"`
}

// ShareholderRow is one row of the shareholders table.
type ShareholderRow struct {
	Name     string `json:"name"`
	JoinDate string `json:"join_date"`
}

// BusinessNameRow is one row of the registered business names table.
type BusinessNameRow struct {
	Name   string `json:"name"`
	Number string `json:"number"`
	UPN    string `json:"upn"`
}

// ActivityRow is one row of the business activities table.
type ActivityRow struct {
	Number              *string `json:"number"`
	ActivityDescription *string `json:"activity_description"`
	State               *string `json:"state"`
	IssuedDate          *string `json:"issued_date"`
	ExpiryDate          *string `json:"expiry_date"`
	BusinessName        *string `json:"business_name"`
	Address             *string `json:"address"`
}

// PermitsInfo is the permits section. Row-level parsing is not done;
// PermitsList is always empty.
type PermitsInfo struct {
	HasPermits  bool                `json:"has_permits"`
	Message     *string             `json:"message"`
	PermitsList []map[string]string `json:"permits_list"`
}

// LicensesInfo mirrors PermitsInfo for the licenses section.
type LicensesInfo struct {
	HasLicenses  bool                `json:"has_licenses"`
	Message      *string             `json:"message"`
	LicensesList []map[string]string `json:"licenses_list"`
}

// BusinessDetail is the terminal record for one business detail page.
type BusinessDetail struct {
	BusinessID  *string    `json:"business_id"`
	DetailURL   string     `json:"detail_url"`
	PageType    string     `json:"page_type"`
	ExtractedAt *time.Time `json:"extracted_at"`

	BusinessName       *string `json:"business_name"`
	BusinessType       *string `json:"business_type"`
	Address            *string `json:"address"`
	RegistrationNumber *string `json:"registration_number"`
	Status             *string `json:"status"`
	UPN                *string `json:"upn"`
	SMEClassification  *string `json:"sme_classification"`

	Owner            *string `json:"owner"`
	ManagingDirector *string `json:"managing_director"`

	BoardOfDirectors      []DirectorRow     `json:"board_of_directors"`
	BoardOfDirectorsCount int               `json:"board_of_directors_count"`
	Shareholders          []ShareholderRow  `json:"shareholders"`
	ShareholdersCount     int               `json:"shareholders_count"`
	BusinessNames         []BusinessNameRow `json:"business_names"`
	BusinessNamesCount    int               `json:"business_names_count"`
	BusinessActivities    []ActivityRow     `json:"business_activities"`
	BusinessActivityCount int               `json:"business_activities_count"`

	Permits  PermitsInfo  `json:"permits"`
	Licenses LicensesInfo `json:"licenses"`
}

// NewBusinessDetail returns a detail with every list initialised empty so
// the JSON form never carries null lists.
func NewBusinessDetail(detailURL string) *BusinessDetail {
	return &BusinessDetail{
		DetailURL:          detailURL,
		PageType:           PageTypeBusinessDetail,
		BoardOfDirectors:   []DirectorRow{},
		Shareholders:       []ShareholderRow{},
		BusinessNames:      []BusinessNameRow{},
		BusinessActivities: []ActivityRow{},
		Permits:            PermitsInfo{PermitsList: []map[string]string{}},
		Licenses:           LicensesInfo{LicensesList: []map[string]string{}},
	}
}

// SyncCounts sets every *_count field from the length of its list.
func (d *BusinessDetail) SyncCounts() {
	d.BoardOfDirectorsCount = len(d.BoardOfDirectors)
	d.ShareholdersCount = len(d.Shareholders)
	d.BusinessNamesCount = len(d.BusinessNames)
	d.BusinessActivityCount = len(d.BusinessActivities)
}

func (d *BusinessDetail) RecordType() string { return d.PageType }

func (d *BusinessDetail) Key() string {
	if d.BusinessID != nil {
		return *d.BusinessID
	}
	return d.DetailURL
}

// ErrorRecord replaces a BusinessDetail when extraction of a detail page
// failed. It always carries the raw page for diagnosis.
type ErrorRecord struct {
	Error       string     `json:"error"`
	DetailURL   string     `json:"detail_url"`
	PageType    string     `json:"page_type"`
	BusinessID  *string    `json:"business_id"`
	RawHTML     string     `json:"raw_html"`
	HTMLLength  int        `json:"html_length"`
	ExtractedAt *time.Time `json:"extracted_at,omitempty"`
}

func (e *ErrorRecord) RecordType() string { return e.PageType }

func (e *ErrorRecord) Key() string {
	if e.BusinessID != nil {
		return *e.BusinessID
	}
	return e.DetailURL
}

// DetailResult is the outcome of extracting one detail page: exactly one
// of Detail or Failure is set.
type DetailResult struct {
	Detail  *BusinessDetail
	Failure *ErrorRecord
}

// Record returns whichever side of the result is populated.
func (r DetailResult) Record() Record {
	if r.Failure != nil {
		return r.Failure
	}
	return r.Detail
}

// OK reports whether extraction succeeded.
func (r DetailResult) OK() bool {
	return r.Failure == nil && r.Detail != nil
}

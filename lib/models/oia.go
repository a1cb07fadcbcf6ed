package models

import (
	"bytes"
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"time"

	"certification/lib/util"
)

var identificationPattern = regexp.MustCompile(`^[0-9A-Za-z-]{3,20}$`)

// Oia is an accredited inspection organism.
type Oia struct {
	ID                                int64           `json:"id"`
	Identification                    string          `json:"identification"`
	Name                              string          `json:"name"`
	AccreditationCode                 string          `json:"accreditationCode"`
	EffectiveDate                     *time.Time      `json:"effectiveDate,omitempty"`
	LegalRepresentativeName           string          `json:"legalRepresentativeName"`
	LegalRepresentativeIdentification string          `json:"legalRepresentativeIdentification"`
	Email                             string          `json:"email"`
	Phone                             string          `json:"phone"`
	Address                           string          `json:"address"`
	City                              string          `json:"city"`
	TypeOrganismID                    *int64          `json:"typeOrganismId,omitempty"`
	OrganismCodes                     OrganismCodes   `json:"organismCodes"`
	AcceptedTerms                     bool            `json:"acceptedTerms"`
	Status                            LifecycleStatus `json:"status"`
	Comment                           *string         `json:"comment,omitempty"`
	Active                            bool            `json:"active"`
	UserID                            *int64          `json:"userId,omitempty"`
	CreatedAt                         time.Time       `json:"createdAt"`
	UpdatedAt                         time.Time       `json:"updatedAt"`
}

// OiaResponse is an Oia with display fields and, on request, its files.
type OiaResponse struct {
	Oia
	StatusName       string    `json:"statusName"`
	TypeOrganismName *string   `json:"typeOrganismName,omitempty"`
	Files            []OiaFile `json:"files,omitempty"`
}

// OrganismCode is the code a distributor (gasera) assigned to an OIA.
type OrganismCode struct {
	Distributor string `json:"gasera"`
	Code        string `json:"codigo"`
}

// OrganismCodes is stored as a JSONB array.
type OrganismCodes []OrganismCode

// Value encodes as text; lib/pq would send a []byte as bytea.
func (c OrganismCodes) Value() (driver.Value, error) {
	if c == nil {
		c = OrganismCodes{}
	}
	b, err := json.Marshal(c)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (c *OrganismCodes) Scan(src interface{}) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		*c = OrganismCodes{}
		return nil
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("cannot scan %T into OrganismCodes", src)
	}
	codes := OrganismCodes{}
	if err := json.Unmarshal(raw, &codes); err != nil {
		return err
	}
	*c = codes
	return nil
}

// ParseOrganismCodes accepts either a JSON array or a JSON string holding one.
// Fields are trimmed; entries missing a field or repeating a distributor are rejected.
func ParseOrganismCodes(raw []byte) (OrganismCodes, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, nil
	}

	if raw[0] == '"' {
		var encoded string
		if err := json.Unmarshal(raw, &encoded); err != nil {
			return nil, fmt.Errorf("organismCodes is not valid JSON")
		}
		encoded = strings.TrimSpace(encoded)
		if encoded == "" {
			return nil, nil
		}
		raw = []byte(encoded)
	}

	var entries []map[string]interface{}
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, fmt.Errorf("organismCodes must be a list of {gasera, codigo}")
	}

	codes := make(OrganismCodes, 0, len(entries))
	seen := make(map[string]bool, len(entries))
	for i, entry := range entries {
		distributor := codeField(entry, "gasera")
		code := codeField(entry, "codigo")
		if distributor == "" || code == "" {
			return nil, fmt.Errorf("organismCodes[%d] requires gasera and codigo", i)
		}
		key := strings.ToUpper(distributor)
		if seen[key] {
			return nil, fmt.Errorf("duplicate distributor %q in organismCodes", distributor)
		}
		seen[key] = true
		codes = append(codes, OrganismCode{Distributor: distributor, Code: code})
	}
	return codes, nil
}

func codeField(entry map[string]interface{}, key string) string {
	switch v := entry[key].(type) {
	case string:
		return strings.TrimSpace(v)
	case float64:
		return strings.TrimSpace(fmt.Sprintf("%v", v))
	default:
		return ""
	}
}

// OiaInput is the request body for creating and updating an OIA. Nil fields are
// left untouched on update.
type OiaInput struct {
	Identification                    *string          `json:"identification"`
	Name                              *string          `json:"name"`
	AccreditationCode                 *string          `json:"accreditationCode"`
	EffectiveDate                     *string          `json:"effectiveDate"`
	LegalRepresentativeName           *string          `json:"legalRepresentativeName"`
	LegalRepresentativeIdentification *string          `json:"legalRepresentativeIdentification"`
	Email                             *string          `json:"email"`
	Phone                             *string          `json:"phone"`
	Address                           *string          `json:"address"`
	City                              *string          `json:"city"`
	TypeOrganismID                    *int64           `json:"typeOrganismId"`
	OrganismCodes                     json.RawMessage  `json:"organismCodes"`
	AcceptedTerms                     *bool            `json:"acceptedTerms"`
	Status                            *LifecycleStatus `json:"status"`
	Comment                           *string          `json:"comment"`
	Active                            *bool            `json:"active"`
}

// BindForm copies OIA fields from a multipart form.
func (in *OiaInput) BindForm(form map[string][]string) error {
	in.Identification = formString(form, "identification")
	in.Name = formString(form, "name")
	in.AccreditationCode = formString(form, "accreditationCode")
	in.EffectiveDate = formString(form, "effectiveDate")
	in.LegalRepresentativeName = formString(form, "legalRepresentativeName")
	in.LegalRepresentativeIdentification = formString(form, "legalRepresentativeIdentification")
	in.Email = formString(form, "email")
	in.Phone = formString(form, "phone")
	in.Address = formString(form, "address")
	in.City = formString(form, "city")
	in.Comment = formString(form, "comment")
	if codes := formString(form, "organismCodes"); codes != nil && *codes != "" {
		in.OrganismCodes = json.RawMessage(*codes)
	}

	var err error
	if in.TypeOrganismID, err = formInt64(form, "typeOrganismId"); err != nil {
		return err
	}
	if in.AcceptedTerms, err = formBool(form, "acceptedTerms"); err != nil {
		return err
	}
	if in.Active, err = formBool(form, "active"); err != nil {
		return err
	}
	if raw := formString(form, "status"); raw != nil && *raw != "" {
		status, err := ParseLifecycleStatus(*raw)
		if err != nil {
			return err
		}
		in.Status = &status
	}
	return nil
}

// ValidateCreate builds a new Pending, active OIA from the input.
func (in OiaInput) ValidateCreate() (*Oia, error) {
	identification, err := requireString("identification", in.Identification)
	if err != nil {
		return nil, err
	}
	if !identificationPattern.MatchString(identification) {
		return nil, fmt.Errorf("identification has an invalid format")
	}
	name, err := requireString("name", in.Name)
	if err != nil {
		return nil, err
	}
	email, err := requireString("email", in.Email)
	if err != nil {
		return nil, err
	}
	if email, err = NormalizeEmail(email); err != nil {
		return nil, fmt.Errorf("email: %w", err)
	}
	effective, err := parseDate("effectiveDate", in.EffectiveDate)
	if err != nil {
		return nil, err
	}
	codes, err := ParseOrganismCodes(in.OrganismCodes)
	if err != nil {
		return nil, err
	}
	if codes == nil {
		codes = OrganismCodes{}
	}

	oia := &Oia{
		Identification:                    identification,
		Name:                              name,
		AccreditationCode:                 optionalString(in.AccreditationCode),
		EffectiveDate:                     effective,
		LegalRepresentativeName:           optionalString(in.LegalRepresentativeName),
		LegalRepresentativeIdentification: optionalString(in.LegalRepresentativeIdentification),
		Email:                             email,
		Phone:                             optionalString(in.Phone),
		Address:                           optionalString(in.Address),
		City:                              optionalString(in.City),
		TypeOrganismID:                    in.TypeOrganismID,
		OrganismCodes:                     codes,
		AcceptedTerms:                     in.AcceptedTerms != nil && *in.AcceptedTerms,
		Status:                            StatusPending,
		Active:                            true,
	}
	return oia, nil
}

// UpdateAssignments returns the OIA columns to change. Status, comment and
// active are only honoured when reviewer is true.
func (in OiaInput) UpdateAssignments(reviewer bool) ([]ColumnValue, error) {
	var set []ColumnValue

	if in.Identification != nil {
		identification, err := requireString("identification", in.Identification)
		if err != nil {
			return nil, err
		}
		if !identificationPattern.MatchString(identification) {
			return nil, fmt.Errorf("identification has an invalid format")
		}
		set = append(set, ColumnValue{"identification", identification})
	}
	if in.Name != nil {
		name, err := requireString("name", in.Name)
		if err != nil {
			return nil, err
		}
		set = append(set, ColumnValue{"name", name})
	}
	if in.Email != nil {
		email, err := requireString("email", in.Email)
		if err != nil {
			return nil, err
		}
		if email, err = NormalizeEmail(email); err != nil {
			return nil, fmt.Errorf("email: %w", err)
		}
		set = append(set, ColumnValue{"email", email})
	}
	if in.EffectiveDate != nil {
		effective, err := parseDate("effectiveDate", in.EffectiveDate)
		if err != nil {
			return nil, err
		}
		set = append(set, ColumnValue{"effective_date", effective})
	}
	if in.OrganismCodes != nil {
		codes, err := ParseOrganismCodes(in.OrganismCodes)
		if err != nil {
			return nil, err
		}
		if codes == nil {
			codes = OrganismCodes{}
		}
		set = append(set, ColumnValue{"organism_codes", codes})
	}

	textColumns := []struct {
		column string
		value  *string
	}{
		{"accreditation_code", in.AccreditationCode},
		{"legal_representative_name", in.LegalRepresentativeName},
		{"legal_representative_identification", in.LegalRepresentativeIdentification},
		{"phone", in.Phone},
		{"address", in.Address},
		{"city", in.City},
	}
	for _, c := range textColumns {
		if c.value != nil {
			set = append(set, ColumnValue{c.column, strings.TrimSpace(*c.value)})
		}
	}
	if in.TypeOrganismID != nil {
		set = append(set, ColumnValue{"type_organism_id", *in.TypeOrganismID})
	}
	if in.AcceptedTerms != nil {
		set = append(set, ColumnValue{"accepted_terms", *in.AcceptedTerms})
	}

	if reviewer {
		if in.Status != nil {
			if err := ValidateStatusComment(*in.Status, in.Comment); err != nil {
				return nil, err
			}
			set = append(set, ColumnValue{"status", int(*in.Status)})
		}
		if in.Comment != nil {
			set = append(set, ColumnValue{"comment", commentValue(in.Comment)})
		}
		if in.Active != nil {
			set = append(set, ColumnValue{"active", *in.Active})
		}
	}
	return set, nil
}

// ReviewInput is the body of an OIA review.
type ReviewInput struct {
	Status  LifecycleStatus `json:"status"`
	Comment *string         `json:"comment"`
}

// ReviewComment returns the trimmed comment or nil when blank.
func (in ReviewInput) ReviewComment() interface{} {
	return commentValue(in.Comment)
}

func (in ReviewInput) Validate() error {
	if !in.Status.Valid() {
		return fmt.Errorf("status is required")
	}
	if in.Status == StatusPending {
		return fmt.Errorf("a review cannot set the status back to pending")
	}
	return ValidateStatusComment(in.Status, in.Comment)
}

// ValidateStatusComment enforces that any status other than Approved carries a comment.
func ValidateStatusComment(status LifecycleStatus, comment *string) error {
	if !status.Valid() {
		return fmt.Errorf("unknown status %d", status)
	}
	if status != StatusApproved && util.IsBlank(comment) {
		return fmt.Errorf("comment is required when status is %s", status.DisplayName())
	}
	return nil
}

func commentValue(comment *string) interface{} {
	if util.IsBlank(comment) {
		return nil
	}
	return strings.TrimSpace(*comment)
}

// OiaFilters narrows an OIA listing.
type OiaFilters struct {
	PageRequest
	Status         *LifecycleStatus
	TypeOrganismID *int64
	Active         *bool
	Search         string
}

// ParseOiaFilters reads OIA list filters from the query string.
func ParseOiaFilters(params map[string]string) (OiaFilters, error) {
	page, err := ParsePageRequest(params)
	if err != nil {
		return OiaFilters{}, err
	}
	filters := OiaFilters{PageRequest: page}
	if raw := strings.TrimSpace(params["status"]); raw != "" {
		status, err := ParseLifecycleStatus(raw)
		if err != nil {
			return filters, err
		}
		filters.Status = &status
	}
	if filters.TypeOrganismID, err = queryInt64(params, "typeOrganismId"); err != nil {
		return filters, err
	}
	if raw := strings.TrimSpace(params["active"]); raw != "" {
		active := raw == "true" || raw == "1"
		if !active && raw != "false" && raw != "0" {
			return filters, fmt.Errorf("active must be true or false")
		}
		filters.Active = &active
	}
	if filters.Search, err = querySearch(params); err != nil {
		return filters, err
	}
	return filters, nil
}

// Registration is a validated OIA application together with its applicant.
type Registration struct {
	Oia          *Oia
	Applicant    *User
	Certificates CertificateUploads
}

// NewRegistration validates an application in the order files, OIA fields
// (organism codes included), applicant. The OIA is approved and active.
func NewRegistration(in OiaInput, applicant ApplicantInput, certificates CertificateUploads) (*Registration, error) {
	if err := certificates.RequireBoth(); err != nil {
		return nil, err
	}
	if err := certificates.Validate(); err != nil {
		return nil, err
	}
	oia, err := in.ValidateCreate()
	if err != nil {
		return nil, err
	}
	user, err := applicant.ValidateNew()
	if err != nil {
		return nil, err
	}
	oia.Status = StatusApproved
	oia.Active = true
	return &Registration{Oia: oia, Applicant: user, Certificates: certificates}, nil
}

package models

import (
	"fmt"
	"strings"
	"time"
)

// Inspector is a person certified to inspect, employed by one OIA.
type Inspector struct {
	ID                       int64           `json:"id"`
	Identification           string          `json:"identification"`
	Name                     string          `json:"name"`
	CertifyingOrganism       string          `json:"certifyingOrganism"`
	CertificateCode          string          `json:"certificateCode"`
	CertificateEffectiveDate *time.Time      `json:"certificateEffectiveDate,omitempty"`
	Status                   LifecycleStatus `json:"status"`
	Comment                  *string         `json:"comment,omitempty"`
	OiaID                    int64           `json:"oiaId"`
	Active                   bool            `json:"active"`
	CreatedAt                time.Time       `json:"createdAt"`
	UpdatedAt                time.Time       `json:"updatedAt"`
}

type InspectorResponse struct {
	Inspector
	StatusName string `json:"statusName"`
	OiaName    string `json:"oiaName"`
}

// InspectorInput is the request body for creating and updating an inspector.
type InspectorInput struct {
	Identification           *string          `json:"identification"`
	Name                     *string          `json:"name"`
	CertifyingOrganism       *string          `json:"certifyingOrganism"`
	CertificateCode          *string          `json:"certificateCode"`
	CertificateEffectiveDate *string          `json:"certificateEffectiveDate"`
	OiaID                    *int64           `json:"oiaId"`
	Status                   *LifecycleStatus `json:"status"`
	Comment                  *string          `json:"comment"`
	Active                   *bool            `json:"active"`
}

// ValidateCreate builds a new Pending, active inspector. The OIA id must be
// resolved by the caller before this is called.
func (in InspectorInput) ValidateCreate() (*Inspector, error) {
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
	if in.OiaID == nil || *in.OiaID < 1 {
		return nil, fmt.Errorf("oiaId is required")
	}
	effective, err := parseDate("certificateEffectiveDate", in.CertificateEffectiveDate)
	if err != nil {
		return nil, err
	}
	return &Inspector{
		Identification:           identification,
		Name:                     name,
		CertifyingOrganism:       optionalString(in.CertifyingOrganism),
		CertificateCode:          optionalString(in.CertificateCode),
		CertificateEffectiveDate: effective,
		Status:                   StatusPending,
		OiaID:                    *in.OiaID,
		Active:                   true,
	}, nil
}

// UpdateAssignments returns the inspector columns to change. Reviewers may set
// status, comment, active and reassign the OIA; anyone else editing an inspector
// sends it back to Pending.
func (in InspectorInput) UpdateAssignments(reviewer bool) ([]ColumnValue, error) {
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
	if in.CertifyingOrganism != nil {
		set = append(set, ColumnValue{"certifying_organism", strings.TrimSpace(*in.CertifyingOrganism)})
	}
	if in.CertificateCode != nil {
		set = append(set, ColumnValue{"certificate_code", strings.TrimSpace(*in.CertificateCode)})
	}
	if in.CertificateEffectiveDate != nil {
		effective, err := parseDate("certificateEffectiveDate", in.CertificateEffectiveDate)
		if err != nil {
			return nil, err
		}
		set = append(set, ColumnValue{"certificate_effective_date", effective})
	}

	if !reviewer {
		if len(set) > 0 {
			set = append(set, ColumnValue{"status", int(StatusPending)})
		}
		return set, nil
	}

	if in.OiaID != nil {
		set = append(set, ColumnValue{"oia_id", *in.OiaID})
	}
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
	return set, nil
}

// InspectorFilters narrows an inspector listing.
type InspectorFilters struct {
	PageRequest
	Status *LifecycleStatus
	OiaID  *int64
	Search string
}

func ParseInspectorFilters(params map[string]string) (InspectorFilters, error) {
	page, err := ParsePageRequest(params)
	if err != nil {
		return InspectorFilters{}, err
	}
	filters := InspectorFilters{PageRequest: page}
	if raw := strings.TrimSpace(params["status"]); raw != "" {
		status, err := ParseLifecycleStatus(raw)
		if err != nil {
			return filters, err
		}
		filters.Status = &status
	}
	if filters.OiaID, err = queryInt64(params, "oiaId"); err != nil {
		return filters, err
	}
	if filters.Search, err = querySearch(params); err != nil {
		return filters, err
	}
	return filters, nil
}

package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Report is an installation inspection report submitted by an OIA.
type Report struct {
	ID                    int64           `json:"id"`
	OrderReference        string          `json:"orderReference"`
	OrderID               *int64          `json:"orderId,omitempty"`
	CertificateNumber     string          `json:"certificateNumber"`
	CertificateDate       *time.Time      `json:"certificateDate,omitempty"`
	InspectionTypeID      int64           `json:"inspectionTypeId"`
	InspectionResult      string          `json:"inspectionResult"`
	InspectionDate        time.Time       `json:"inspectionDate"`
	OiaID                 int64           `json:"oiaId"`
	InspectorID           int64           `json:"inspectorId"`
	ConstructionCompanyID *int64          `json:"constructionCompanyId,omitempty"`
	Status                ReportStatus    `json:"status"`
	CausalID              *int64          `json:"causalId,omitempty"`
	Comment               *string         `json:"comment,omitempty"`
	ReviewerUserID        *int64          `json:"reviewerUserId,omitempty"`
	ReviewDate            *time.Time      `json:"reviewDate,omitempty"`
	Defects               json.RawMessage `json:"defects,omitempty"`
	CreatedAt             time.Time       `json:"createdAt"`
	UpdatedAt             time.Time       `json:"updatedAt"`
}

// ReportResponse is a Report joined with the names of what it references.
type ReportResponse struct {
	Report
	StatusName              string        `json:"statusName"`
	OiaName                 string        `json:"oiaName"`
	InspectorName           string        `json:"inspectorName"`
	InspectionTypeName      string        `json:"inspectionTypeName"`
	CausalName              *string       `json:"causalName,omitempty"`
	ConstructionCompanyName *string       `json:"constructionCompanyName,omitempty"`
	Checklist               []ReportCheck `json:"checklist,omitempty"`
}

// ReportInput is the request body for submitting a report. Status is never
// read from it.
type ReportInput struct {
	OrderReference        *string         `json:"orderReference"`
	OrderID               *int64          `json:"orderId"`
	CertificateNumber     *string         `json:"certificateNumber"`
	CertificateDate       *string         `json:"certificateDate"`
	InspectionTypeID      *int64          `json:"inspectionTypeId"`
	InspectionResult      *string         `json:"inspectionResult"`
	InspectionDate        *string         `json:"inspectionDate"`
	OiaID                 *int64          `json:"oiaId"`
	InspectorID           *int64          `json:"inspectorId"`
	ConstructionCompanyID *int64          `json:"constructionCompanyId"`
	Defects               json.RawMessage `json:"defects"`
}

// ValidateCreate builds a Pending report. OiaID must already be resolved.
func (in ReportInput) ValidateCreate() (*Report, error) {
	reference, err := requireString("orderReference", in.OrderReference)
	if err != nil {
		return nil, err
	}
	certificate, err := requireString("certificateNumber", in.CertificateNumber)
	if err != nil {
		return nil, err
	}
	if in.InspectionTypeID == nil || *in.InspectionTypeID < 1 {
		return nil, fmt.Errorf("inspectionTypeId is required")
	}
	result, err := requireString("inspectionResult", in.InspectionResult)
	if err != nil {
		return nil, err
	}
	inspectionDate, err := parseDate("inspectionDate", in.InspectionDate)
	if err != nil {
		return nil, err
	}
	if inspectionDate == nil {
		return nil, fmt.Errorf("inspectionDate is required")
	}
	certificateDate, err := parseDate("certificateDate", in.CertificateDate)
	if err != nil {
		return nil, err
	}
	if in.OiaID == nil || *in.OiaID < 1 {
		return nil, fmt.Errorf("oiaId is required")
	}
	if in.InspectorID == nil || *in.InspectorID < 1 {
		return nil, fmt.Errorf("inspectorId is required")
	}

	var defects json.RawMessage
	if trimmed := bytes.TrimSpace(in.Defects); len(trimmed) > 0 && !bytes.Equal(trimmed, []byte("null")) {
		if trimmed[0] != '{' || !json.Valid(trimmed) {
			return nil, fmt.Errorf("defects must be a JSON object")
		}
		defects = trimmed
	}

	return &Report{
		OrderReference:        reference,
		OrderID:               in.OrderID,
		CertificateNumber:     certificate,
		CertificateDate:       certificateDate,
		InspectionTypeID:      *in.InspectionTypeID,
		InspectionResult:      result,
		InspectionDate:        *inspectionDate,
		OiaID:                 *in.OiaID,
		InspectorID:           *in.InspectorID,
		ConstructionCompanyID: in.ConstructionCompanyID,
		Status:                ReportPending,
		Defects:               defects,
	}, nil
}

// ReportReviewInput is the body of a report review.
type ReportReviewInput struct {
	Status   ReportStatus `json:"status"`
	Comment  *string      `json:"comment"`
	CausalID *int64       `json:"causalId"`
}

func (in ReportReviewInput) Validate() error {
	if !in.Status.IsReviewOutcome() {
		return fmt.Errorf("status must be %s or %s", ReportApproved.DisplayName(), ReportRejected.DisplayName())
	}
	if in.Status == ReportRejected && (in.CausalID == nil || *in.CausalID < 1) {
		return fmt.Errorf("causalId is required when rejecting a report")
	}
	return nil
}

// ReviewComment returns the trimmed comment or nil when blank.
func (in ReportReviewInput) ReviewComment() interface{} {
	return commentValue(in.Comment)
}

// ReportCheck is one checklist answer of a report.
type ReportCheck struct {
	ReportID        int64  `json:"reportId"`
	ChecklistItemID int64  `json:"checklistItemId"`
	Question        string `json:"question,omitempty"`
	Answer          bool   `json:"answer"`
}

// ChecklistAnswer is one answer in a checklist save.
type ChecklistAnswer struct {
	ChecklistItemID int64 `json:"checklistItemId"`
	Answer          *bool `json:"answer"`
}

// ChecklistInput replaces every answer of a report.
type ChecklistInput struct {
	Answers []ChecklistAnswer `json:"answers"`
}

func (in ChecklistInput) Validate() error {
	seen := make(map[int64]bool, len(in.Answers))
	for i, a := range in.Answers {
		if a.ChecklistItemID < 1 {
			return fmt.Errorf("answers[%d].checklistItemId is required", i)
		}
		if a.Answer == nil {
			return fmt.Errorf("answers[%d].answer is required", i)
		}
		if seen[a.ChecklistItemID] {
			return fmt.Errorf("checklist item %d answered more than once", a.ChecklistItemID)
		}
		seen[a.ChecklistItemID] = true
	}
	return nil
}

// ItemIDs returns the answered checklist item ids in input order.
func (in ChecklistInput) ItemIDs() []int64 {
	ids := make([]int64, 0, len(in.Answers))
	for _, a := range in.Answers {
		ids = append(ids, a.ChecklistItemID)
	}
	return ids
}

// ReportFilters narrows a report listing.
type ReportFilters struct {
	PageRequest
	Status           *ReportStatus
	OiaID            *int64
	InspectorID      *int64
	InspectionTypeID *int64
	Search           string
}

func ParseReportFilters(params map[string]string) (ReportFilters, error) {
	page, err := ParsePageRequest(params)
	if err != nil {
		return ReportFilters{}, err
	}
	filters := ReportFilters{PageRequest: page}
	if raw := strings.TrimSpace(params["status"]); raw != "" {
		status, err := ParseReportStatus(raw)
		if err != nil {
			return filters, err
		}
		filters.Status = &status
	}
	if filters.OiaID, err = queryInt64(params, "oiaId"); err != nil {
		return filters, err
	}
	if filters.InspectorID, err = queryInt64(params, "inspectorId"); err != nil {
		return filters, err
	}
	if filters.InspectionTypeID, err = queryInt64(params, "inspectionTypeId"); err != nil {
		return filters, err
	}
	if filters.InspectionTypeID == nil {
		if filters.InspectionTypeID, err = queryInt64(params, "inspectionType"); err != nil {
			return filters, err
		}
	}
	if filters.Search, err = querySearch(params); err != nil {
		return filters, err
	}
	return filters, nil
}

package models

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// LifecycleStatus is the status family shared by OIAs and inspectors.
type LifecycleStatus int

const (
	StatusPending LifecycleStatus = iota + 1
	StatusApproved
	StatusRejected
	StatusSuspended
	StatusExpired
	StatusRetired
)

var lifecycleStatusNames = map[LifecycleStatus]string{
	StatusPending:   "Pendiente",
	StatusApproved:  "Aprobado",
	StatusRejected:  "Rechazado",
	StatusSuspended: "Suspendido",
	StatusExpired:   "Vencido",
	StatusRetired:   "Retirado",
}

// AllLifecycleStatuses lists the statuses in display order.
var AllLifecycleStatuses = []LifecycleStatus{
	StatusPending, StatusApproved, StatusRejected, StatusSuspended, StatusExpired, StatusRetired,
}

func (s LifecycleStatus) Valid() bool {
	_, ok := lifecycleStatusNames[s]
	return ok
}

func (s LifecycleStatus) DisplayName() string {
	if name, ok := lifecycleStatusNames[s]; ok {
		return name
	}
	return "Desconocido"
}

// ReviewableFrom reports whether an administrator may move an entity out of s.
func (s LifecycleStatus) ReviewableFrom() bool {
	return s == StatusPending || s == StatusApproved || s == StatusSuspended
}

func (s *LifecycleStatus) UnmarshalJSON(data []byte) error {
	value, err := parseStatusNumber(data)
	if err != nil {
		return err
	}
	status := LifecycleStatus(value)
	if !status.Valid() {
		return fmt.Errorf("unknown status %d", value)
	}
	*s = status
	return nil
}

// ParseLifecycleStatus parses the numeric form used in query strings and forms.
func ParseLifecycleStatus(value string) (LifecycleStatus, error) {
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return 0, fmt.Errorf("status must be numeric")
	}
	status := LifecycleStatus(n)
	if !status.Valid() {
		return 0, fmt.Errorf("unknown status %d", n)
	}
	return status, nil
}

// ReportStatus is the review status of an inspection report.
type ReportStatus int

const (
	ReportPending ReportStatus = iota + 1
	ReportApproved
	ReportRejected
	ReportInconsistent
	ReportStarted
)

var reportStatusNames = map[ReportStatus]string{
	ReportPending:      "Pendiente",
	ReportApproved:     "Aprobado",
	ReportRejected:     "Rechazado",
	ReportInconsistent: "Inconsistente",
	ReportStarted:      "Iniciado",
}

// AllReportStatuses lists the statuses in display order.
var AllReportStatuses = []ReportStatus{
	ReportPending, ReportApproved, ReportRejected, ReportInconsistent, ReportStarted,
}

func (s ReportStatus) Valid() bool {
	_, ok := reportStatusNames[s]
	return ok
}

func (s ReportStatus) DisplayName() string {
	if name, ok := reportStatusNames[s]; ok {
		return name
	}
	return "Desconocido"
}

// IsReviewOutcome reports whether s may be the target of a review.
func (s ReportStatus) IsReviewOutcome() bool {
	return s == ReportApproved || s == ReportRejected
}

func (s *ReportStatus) UnmarshalJSON(data []byte) error {
	value, err := parseStatusNumber(data)
	if err != nil {
		return err
	}
	status := ReportStatus(value)
	if !status.Valid() {
		return fmt.Errorf("unknown report status %d", value)
	}
	*s = status
	return nil
}

// ParseReportStatus parses the numeric form used in query strings.
func ParseReportStatus(value string) (ReportStatus, error) {
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return 0, fmt.Errorf("status must be numeric")
	}
	status := ReportStatus(n)
	if !status.Valid() {
		return 0, fmt.Errorf("unknown report status %d", n)
	}
	return status, nil
}

// parseStatusNumber accepts 2 and "2".
func parseStatusNumber(data []byte) (int, error) {
	var n int
	if err := json.Unmarshal(data, &n); err == nil {
		return n, nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return 0, fmt.Errorf("status must be a number")
	}
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("status must be a number")
	}
	return n, nil
}

// StatusCount is one bucket of a per-status tally.
type StatusCount struct {
	Status int    `json:"status"`
	Name   string `json:"name"`
	Count  int64  `json:"count"`
}

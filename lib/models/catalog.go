package models

type InspectionType struct {
	ID   int64  `json:"id"`
	Code string `json:"code"`
	Name string `json:"name"`
}

// Causal is a rejection reason for reports.
type Causal struct {
	ID   int64  `json:"id"`
	Code string `json:"code"`
	Name string `json:"name"`
}

// ChecklistItem is one question of the checklist of an inspection type.
type ChecklistItem struct {
	ID               int64  `json:"id"`
	InspectionTypeID int64  `json:"inspectionTypeId"`
	Question         string `json:"question"`
	Position         int    `json:"position"`
}

type TypeOrganism struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

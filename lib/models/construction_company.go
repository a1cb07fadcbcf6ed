package models

import (
	"fmt"
	"time"
)

// ConstructionCompany is a builder whose installations are inspected.
type ConstructionCompany struct {
	ID             int64     `json:"id"`
	Identification string    `json:"identification"`
	Name           string    `json:"name"`
	Email          string    `json:"email"`
	Phone          string    `json:"phone"`
	Active         bool      `json:"active"`
	CreatedAt      time.Time `json:"createdAt"`
}

type ConstructionCompanyInput struct {
	Identification *string `json:"identification"`
	Name           *string `json:"name"`
	Email          *string `json:"email"`
	Phone          *string `json:"phone"`
}

func (in ConstructionCompanyInput) ValidateCreate() (*ConstructionCompany, error) {
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
	email := optionalString(in.Email)
	if email != "" {
		if email, err = NormalizeEmail(email); err != nil {
			return nil, fmt.Errorf("email: %w", err)
		}
	}
	return &ConstructionCompany{
		Identification: identification,
		Name:           name,
		Email:          email,
		Phone:          optionalString(in.Phone),
		Active:         true,
	}, nil
}

type CompanyFilters struct {
	PageRequest
	Search string
}

func ParseCompanyFilters(params map[string]string) (CompanyFilters, error) {
	page, err := ParsePageRequest(params)
	if err != nil {
		return CompanyFilters{}, err
	}
	filters := CompanyFilters{PageRequest: page}
	if filters.Search, err = querySearch(params); err != nil {
		return filters, err
	}
	return filters, nil
}

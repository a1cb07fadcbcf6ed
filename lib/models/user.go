package models

import (
	"fmt"
	"net/mail"
	"strings"
	"time"
)

// User is a portal account. AuthEmail is the address the identity provider
// reports, which may differ from the contact email.
type User struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	AuthEmail *string   `json:"authEmail,omitempty"`
	Phone     string    `json:"phone"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Identity is the resolved caller of a request. UserID is 0 for callers with a
// valid token but no directory record.
type Identity struct {
	UserID int64  `json:"id"`
	Name   string `json:"name"`
	Email  string `json:"email"`
	Role   *Role  `json:"role"`
	OiaID  *int64 `json:"oiaId"`
}

// Known reports whether the caller exists in the directory.
func (i *Identity) Known() bool {
	return i != nil && i.UserID != 0
}

// MeResponse is returned by the current user endpoint.
type MeResponse struct {
	Identity
	RoleName    *string  `json:"roleName"`
	Permissions []string `json:"permissions"`
}

// OiaUser is a user linked to an OIA.
type OiaUser struct {
	User
	Role     *Role     `json:"role"`
	LinkedAt time.Time `json:"linkedAt"`
}

// ApplicantInput holds the contact person of an OIA registration or profile update.
type ApplicantInput struct {
	UserName  *string `json:"userName"`
	UserEmail *string `json:"userEmail"`
	UserPhone *string `json:"userPhone"`
}

// BindForm copies applicant fields from a multipart form.
func (in *ApplicantInput) BindForm(form map[string][]string) {
	in.UserName = formString(form, "userName")
	in.UserEmail = formString(form, "userEmail")
	in.UserPhone = formString(form, "userPhone")
}

// Provided reports whether any applicant field was sent.
func (in ApplicantInput) Provided() bool {
	return in.UserName != nil || in.UserEmail != nil || in.UserPhone != nil
}

// ValidateNew returns the user to create for a registration.
func (in ApplicantInput) ValidateNew() (*User, error) {
	name, err := requireString("userName", in.UserName)
	if err != nil {
		return nil, err
	}
	email, err := requireString("userEmail", in.UserEmail)
	if err != nil {
		return nil, err
	}
	email, err = NormalizeEmail(email)
	if err != nil {
		return nil, fmt.Errorf("userEmail: %w", err)
	}
	return &User{
		Name:   name,
		Email:  email,
		Phone:  optionalString(in.UserPhone),
		Active: true,
	}, nil
}

// UpdateAssignments returns the user columns to change. Blank name or email is rejected.
func (in ApplicantInput) UpdateAssignments() ([]ColumnValue, error) {
	var set []ColumnValue
	if in.UserName != nil {
		name, err := requireString("userName", in.UserName)
		if err != nil {
			return nil, err
		}
		set = append(set, ColumnValue{"name", name})
	}
	if in.UserEmail != nil {
		email, err := requireString("userEmail", in.UserEmail)
		if err != nil {
			return nil, err
		}
		if email, err = NormalizeEmail(email); err != nil {
			return nil, fmt.Errorf("userEmail: %w", err)
		}
		set = append(set, ColumnValue{"email", email})
	}
	if in.UserPhone != nil {
		set = append(set, ColumnValue{"phone", optionalString(in.UserPhone)})
	}
	return set, nil
}

// NormalizeEmail validates a bare address and lowercases it.
func NormalizeEmail(value string) (string, error) {
	value = strings.TrimSpace(value)
	addr, err := mail.ParseAddress(value)
	if err != nil || addr.Address != value {
		return "", fmt.Errorf("invalid email address")
	}
	return strings.ToLower(value), nil
}

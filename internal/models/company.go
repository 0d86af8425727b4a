package models

import "time"

// Company owns a set of spending policies and the users that submit
// expenses against them.
type Company struct {
	ID        int64      `json:"id"`
	Name      string     `json:"name"`
	Address   string     `json:"address,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt *time.Time `json:"updated_at,omitempty"`
}

// User is an expense submitter belonging to a company.
type User struct {
	ID        int64      `json:"id"`
	CompanyID int64      `json:"company_id"`
	Email     string     `json:"email"`
	FullName  string     `json:"full_name"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt *time.Time `json:"updated_at,omitempty"`
}

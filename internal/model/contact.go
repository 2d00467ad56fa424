// internal/model/contact.go
package model

import "strings"

type Contact struct {
	ID          int    `db:"id" json:"id"`
	Email       string `db:"email" json:"email"`
	Phone       string `db:"phone" json:"phone"`
	FirstName   string `db:"first_name" json:"first_name"`
	LastName    string `db:"last_name" json:"last_name"`
	Company     string `db:"company" json:"company"`
	Industry    string `db:"industry" json:"industry"`
	Location    string `db:"location" json:"location"`
	LinkedInURL string `db:"linkedin_url" json:"linkedin_url"`
}

// Placeholders returns the template substitution map for this contact.
func (c *Contact) Placeholders() map[string]string {
	return map[string]string{
		"first_name": c.FirstName,
		"last_name":  c.LastName,
		"email":      c.Email,
		"company":    c.Company,
		"industry":   c.Industry,
		"location":   c.Location,
	}
}

// Field looks up a contact attribute by name for condition predicates.
func (c *Contact) Field(name string) string {
	switch strings.ToLower(name) {
	case "email":
		return c.Email
	case "phone":
		return c.Phone
	case "first_name":
		return c.FirstName
	case "last_name":
		return c.LastName
	case "company":
		return c.Company
	case "industry":
		return c.Industry
	case "location":
		return c.Location
	}
	return ""
}

package repository

import (
	"database/sql"
	"strconv"

	"github.com/unclebandit/outreach-backend/internal/model"
)

type ContactRepositoryInterface interface {
	GetByID(id int) (*model.Contact, error)
	ListAll() ([]model.Contact, error)
	Resolve(targetSegment, excludeSegment string) ([]int, error)
}

type ContactRepository struct {
	DB *sql.DB
}

const contactColumns = `id, email, phone, first_name, last_name, company, industry, location, linkedin_url`

func (r *ContactRepository) GetByID(id int) (*model.Contact, error) {
	query := `SELECT ` + contactColumns + ` FROM contacts WHERE id=$1`
	var c model.Contact
	err := r.DB.QueryRow(query, id).Scan(
		&c.ID, &c.Email, &c.Phone, &c.FirstName, &c.LastName,
		&c.Company, &c.Industry, &c.Location, &c.LinkedInURL,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil // not found
		}
		return nil, err
	}
	return &c, nil
}

func (r *ContactRepository) ListAll() ([]model.Contact, error) {
	rows, err := r.DB.Query(`SELECT ` + contactColumns + ` FROM contacts`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	contacts := []model.Contact{}
	for rows.Next() {
		var c model.Contact
		if err := rows.Scan(&c.ID, &c.Email, &c.Phone, &c.FirstName, &c.LastName,
			&c.Company, &c.Industry, &c.Location, &c.LinkedInURL); err != nil {
			return nil, err
		}
		contacts = append(contacts, c)
	}
	return contacts, nil
}

// Resolve implements the segment resolver collaborator against the
// contacts table. Segments are opaque to the engine; this default treats
// them as industry matches, which is what the product's list filters ship
// today. Used only at enrollment-creation time, never in the hot path.
func (r *ContactRepository) Resolve(targetSegment, excludeSegment string) ([]int, error) {
	query := `SELECT id FROM contacts WHERE 1=1`
	args := []interface{}{}
	if targetSegment != "" {
		query += ` AND industry = $1`
		args = append(args, targetSegment)
	}
	if excludeSegment != "" {
		query += ` AND industry <> $` + strconv.Itoa(len(args)+1)
		args = append(args, excludeSegment)
	}
	rows, err := r.DB.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ids := []int{}
	for rows.Next() {
		var id int
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

var _ ContactRepositoryInterface = (*ContactRepository)(nil)

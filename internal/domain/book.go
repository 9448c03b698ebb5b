package domain

import "time"

// Book is the owned catalog entry. Owner and CreatedAt are stamped by the
// server at creation and never change afterwards.
type Book struct {
	ID            string
	OwnerID       string
	Title         string
	Author        string
	PublishedDate *time.Time
	ISBN          *string // cleaned form: exactly 10 or 13 digits
	CreatedAt     time.Time
}

// BookPayload is the raw attribute set supplied by the transport collaborator
// for create and full update. All fields arrive as uninterpreted strings;
// empty means absent.
type BookPayload struct {
	Title         string
	Author        string
	PublishedDate string
	ISBN          string
}

// BookAttributes is the validated, normalized attribute set produced by the
// field validation pass. It never carries owner or timestamps; those are
// server-assigned.
type BookAttributes struct {
	Title         string
	Author        string
	PublishedDate *time.Time
	ISBN          *string
}

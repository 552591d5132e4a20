// Package models defines server-side data models persisted in the database.
package models

import "time"

// CopyStatus is the derived circulation state of a copy at a point in time.
type CopyStatus string

const (
	StatusAvailable CopyStatus = "available"
	StatusOnLoan    CopyStatus = "on_loan"
	StatusOverdue   CopyStatus = "overdue"
)

// Copy is one loanable physical instance of a catalogued work.
//
// HolderID and DueAt are either both set or both nil.
type Copy struct {
	ID        string
	Title     string
	Author    string
	ISBN      string
	HolderID  *string
	IssuedAt  *time.Time
	DueAt     *time.Time
	CreatedAt time.Time
}

// Status derives the circulation state relative to now.
func (c *Copy) Status(now time.Time) CopyStatus {
	if c.HolderID == nil {
		return StatusAvailable
	}
	if c.DueAt != nil && c.DueAt.Before(now) {
		return StatusOverdue
	}
	return StatusOnLoan
}

// Available reports whether nobody holds the copy.
func (c *Copy) Available() bool {
	return c.HolderID == nil
}

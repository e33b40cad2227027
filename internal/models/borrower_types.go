package models

import "time"

// Borrower is the model for the 'borrowers' table.
// Borrowers are the students/staff items are lent to; they are not
// login users of this system.
type Borrower struct {
	ID        int64     `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	Email     string    `json:"email" db:"email"`
	Phone     string    `json:"phone" db:"phone"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
}

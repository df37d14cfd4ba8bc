package domain

import "time"

// ClientNote is an append-only annotation on a client record. UserName is
// denormalized so note listings survive author renames without a join.
type ClientNote struct {
	ID        string
	ClientID  string
	UserID    string
	UserName  string
	Note      string
	CreatedAt time.Time
}

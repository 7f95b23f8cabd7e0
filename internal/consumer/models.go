package consumer

import "time"

// Consumer is an external caller authorised to use the gateway. UserID maps
// the authenticated token subject to the row; organisation entitlements live
// in a separate table with their own activity windows.
type Consumer struct {
	ID         string     `db:"id" json:"id"`
	UserID     string     `db:"user_id" json:"user_id"`
	Name       string     `db:"name" json:"name"`
	ActiveFrom *time.Time `db:"active_from" json:"active_from,omitempty"`
	ActiveTo   *time.Time `db:"active_to" json:"active_to,omitempty"`
	CreatedAt  time.Time  `db:"created_at" json:"created_at"`
}

// ActiveAt reports whether the consumer's window covers the given instant.
// Missing bounds deny access: consumer activation is fail-closed, unlike
// provider windows where nil means unbounded.
func (c Consumer) ActiveAt(now time.Time) bool {
	if c.ActiveFrom == nil || c.ActiveTo == nil {
		return false
	}
	return !c.ActiveFrom.After(now) && !c.ActiveTo.Before(now)
}

package models

import "time"

// Pageview is one observed page load. DwellSeconds is the only mutable
// field; a later heartbeat correlated by Token rewrites it.
type Pageview struct {
	ID           int       `db:"id" json:"id"`
	OwnerID      int       `db:"owner_id" json:"ownerId"`
	Timestamp    time.Time `db:"timestamp" json:"timestamp"`
	Domain       string    `db:"domain" json:"domain"`
	Path         string    `db:"path" json:"path"`
	Referrer     string    `db:"referrer" json:"referrer"`
	DwellSeconds int       `db:"dwell_seconds" json:"dwellSeconds"`
	Token        string    `db:"token" json:"token"`
}

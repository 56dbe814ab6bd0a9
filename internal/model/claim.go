package model

import "time"

// ClaimRecord is one account's stored last-changed claim, surfaced by the
// repository for expiry scans with the epoch-millis value already parsed.
type ClaimRecord struct {
	Username  string    `db:"username"`
	ChangedAt time.Time `db:"-"`
}

// PasswordChangedMessage is the payload published to the broker after a
// successful post-change stamp, for downstream consumers.
type PasswordChangedMessage struct {
	Tenant          string `json:"tenant"`
	Username        string `json:"username"`
	ChangedAtMillis int64  `json:"changed_at_ms"`
}

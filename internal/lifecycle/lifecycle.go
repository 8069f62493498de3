// Package lifecycle derives an SSL certificate's status from its expiration
// date. The write path calls DeriveStatus explicitly before every persist;
// nothing recomputes status at read time.
package lifecycle

import (
	"math"
	"time"

	"github.com/tkellner/homelab-manager/internal/db"
)

// ExpiringSoonDays is the threshold below which a still-valid certificate is
// flagged as expiring.
const ExpiringSoonDays = 30

// DeriveStatus is a pure function of (expiration, current, now). Revoked is
// terminal: no derivation ever transitions away from it. A certificate whose
// expiration lies in the past is expired regardless of how recently it lapsed.
func DeriveStatus(expiration time.Time, current db.CertStatus, now time.Time) db.CertStatus {
	if current == db.CertRevoked {
		return db.CertRevoked
	}
	if expiration.Before(now) {
		return db.CertExpired
	}
	if daysUntil(expiration, now) <= ExpiringSoonDays {
		return db.CertExpiringSoon
	}
	return db.CertValid
}

// daysUntil counts whole days remaining, rounded up, matching the
// days_until_expiry field exposed by the API.
func daysUntil(expiration, now time.Time) int {
	return int(math.Ceil(expiration.Sub(now).Seconds() / 86400))
}

package verification

import "time"

// Record is the stored state of one issued verification token. The signed
// token only carries its JTI; expiry and consumption are decided here.
type Record struct {
	JTI        string     `bson:"_id" json:"jti"`
	Email      string     `bson:"email" json:"email"`
	Requester  string     `bson:"requester" json:"requester"`
	IssuedAt   time.Time  `bson:"issuedAt" json:"issuedAt"`
	ExpiresAt  time.Time  `bson:"expiresAt" json:"expiresAt"`
	ConsumedAt *time.Time `bson:"consumedAt" json:"consumedAt,omitempty"`
	// PurgeAt is when the record may be dropped by the store.
	PurgeAt time.Time `bson:"purgeAt" json:"purgeAt"`
}

// Consumed reports whether the token has already been confirmed.
func (r *Record) Consumed() bool { return r.ConsumedAt != nil }

// Expired reports whether the token is past its expiry at now.
func (r *Record) Expired(now time.Time) bool { return !now.Before(r.ExpiresAt) }

package domain

import (
	"log/slog"
	"time"
)

// Identity is who a verified token says the caller is. It is rebuilt from
// the token on every request and never stored.
type Identity struct {
	SubjectID int64
	Role      Role
	Enabled   bool
}

func (i Identity) IsAdmin() bool { return i.Role == RoleAdmin }

// Token is a minted session token. ExpiresAt is always IssuedAt + TTL.
type Token struct {
	Value     string
	IssuedAt  time.Time
	ExpiresAt time.Time
	TTL       time.Duration
}

func (i Identity) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int64("user_id", i.SubjectID),
		slog.String("role", i.Role.String()),
	)
}

package domain

import "time"

type User struct {
	ID           int64
	Username     string
	Email        string
	PasswordHash string // argon2id PHC, or bcrypt for accounts imported from the old system
	Role         Role
	Enabled      bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Identity returns the authenticated principal for u.
func (u User) Identity() Identity {
	return Identity{SubjectID: u.ID, Role: u.Role, Enabled: u.Enabled}
}

// UserPatch is a partial update. Nil fields are left untouched.
type UserPatch struct {
	Username *string
	Email    *string
	Password *string
	Role     *Role
	Enabled  *bool
}

// Privileged reports whether the patch sets role or enabled.
func (p UserPatch) Privileged() bool {
	return p.Role != nil || p.Enabled != nil
}

// ChangesPrivileged reports whether applying the patch to u would change its
// role or enabled flag, which only an administrator may do.
func (p UserPatch) ChangesPrivileged(u User) bool {
	return p.Role != nil && *p.Role != u.Role || p.Enabled != nil && *p.Enabled != u.Enabled
}

func (p UserPatch) IsEmpty() bool {
	return p.Username == nil && p.Email == nil && p.Password == nil && !p.Privileged()
}

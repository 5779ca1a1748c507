package common

// Actor is the authenticated caller as seen by services.
type Actor struct {
	UID       string
	Email     string
	Role      Role
	Verify    VerifyState
	ProfileID uint64
}

func (a Actor) IsAdmin() bool {
	return a.Role == RoleAdmin
}

// CanModify reports whether the actor may edit or delete a record owned by ownerEmail.
func (a Actor) CanModify(ownerEmail string) bool {
	return a.IsAdmin() || (a.Email != "" && NormalizeEmail(ownerEmail) == a.Email)
}

package ads

// Actor is the authenticated caller resolved by the identity provider.
// A nil *Actor is an anonymous caller.
type Actor struct {
	ID       uint
	Email    string
	FullName string
	Phone    string
	IsStaff  bool
}

func (a *Actor) Authenticated() bool {
	return a != nil && a.ID != 0
}

func (a *Actor) Staff() bool {
	return a.Authenticated() && a.IsStaff
}

func (a *Actor) Owns(ownerID uint) bool {
	return a.Authenticated() && a.ID == ownerID
}

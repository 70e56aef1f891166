package domain

// Actor is the platform user issuing a request.
type Actor struct {
	UserID          string
	Username        string
	IsAdministrator bool
	RoleIDs         []string
}

// HasRole reports whether the actor holds roleID.
func (a Actor) HasRole(roleID string) bool {
	if roleID == "" {
		return false
	}
	for _, id := range a.RoleIDs {
		if id == roleID {
			return true
		}
	}
	return false
}

// SystemActor is used for transitions the bot performs on its own.
var SystemActor = Actor{UserID: "system", Username: "system", IsAdministrator: true}

package domain

// SessionState is the observable state of the session store
type SessionState struct {
	LoggedIn bool        `json:"logged_in"`
	Profile  UserProfile `json:"profile"`
	Version  uint64      `json:"version"`
}

// GuestSession is the logged out state
func GuestSession() SessionState {
	return SessionState{Profile: UserProfile{Role: RoleUser}}
}

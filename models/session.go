package models

import "github.com/octabyte/sentimind-session/enums"

// Session is a read-only view of the session state.
type Session struct {
	User    *User              `json:"user,omitempty"`
	Loading bool               `json:"loading"`
	State   enums.SessionState `json:"state"`
}

func (s Session) Authenticated() bool {
	return s.User != nil
}

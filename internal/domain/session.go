// Package domain contains entity without logic, just meta-data
package domain

import "errors"

const MaxUsernameLen = 36

var (
	ErrUsernameTooLong = errors.New("username too long")
	ErrUsernameEmpty   = errors.New("username empty")
	ErrMessageEmpty    = errors.New("message empty")
	ErrNoSession       = errors.New("no active session")
)

// Session binds a live connection to its announced display name.
// Usernames are not unique; two sessions may share one.
type Session struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

// NewSession is a tiny helper to avoid ad-hoc struct literals in adapters.
func NewSession(id, username string) (*Session, error) {
	if len(username) == 0 {
		return nil, ErrUsernameEmpty
	}
	if len(username) > MaxUsernameLen {
		return nil, ErrUsernameTooLong
	}
	return &Session{ID: id, Username: username}, nil
}

// RecipientOfflineError reports a private message whose target has no
// live session. Its text is what the sender sees.
type RecipientOfflineError struct {
	Username string
}

func (e *RecipientOfflineError) Error() string {
	return "User " + e.Username + " is not online"
}

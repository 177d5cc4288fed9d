package cursorauth

import "fmt"

const (
	cookiePrefix     = "NEXT_LOCALE=cn"
	sessionCookieKey = "WorkosCursorSessionToken"
	// "::" as the browser sends it.
	sessionSeparator = "%3A%3A"
)

// Session pairs an access token with the user it belongs to.
type Session struct {
	Token  string
	UserID string
}

// NewSession returns ok=false unless both token and userID are present.
func NewSession(token, userID string) (Session, bool) {
	if token == "" || userID == "" {
		return Session{}, false
	}
	return Session{Token: token, UserID: userID}, true
}

// Cookie renders the Cookie header value for cursor.com requests.
func (s Session) Cookie() string {
	return fmt.Sprintf("%s; %s=%s%s%s", cookiePrefix, sessionCookieKey, s.UserID, sessionSeparator, s.Token)
}

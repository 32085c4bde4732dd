package domain

// Session pairs a bearer token with the user it authenticates. It is created
// on login or silent restore and destroyed on logout or token rejection.
type Session struct {
	Token string
	User  *User
}

func (s *Session) Authenticated() bool {
	return s != nil && s.Token != "" && s.User.Valid()
}

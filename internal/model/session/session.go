package session

import "time"

// Identity describes the authenticated user as reported by the remote API.
type Identity struct {
	ID          int64  `json:"id"`
	DisplayName string `json:"displayName"`
	Email       string `json:"email"`
}

// Session is the locally persisted proof of an authenticated user: the bearer
// token plus the tenant scope every API call is made under. At most one
// session exists per install; its presence is assumed valid until the remote
// API answers 401.
type Session struct {
	Token     string    `json:"token"`
	Identity  Identity  `json:"identity"`
	CompanyID int64     `json:"companyId"`
	BrandID   int64     `json:"brandId"`
	CreatedAt time.Time `json:"createdAt"`
}

// Valid reports whether the session carries a usable token.
func (s *Session) Valid() bool {
	return s != nil && s.Token != ""
}

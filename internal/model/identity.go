package model

// Identity is the authenticated caller of an operation, as asserted by the
// identity provider and carried in the access token.
//
// Services receive it as an explicit argument instead of reading ambient
// request state. The zero value is an anonymous caller.
type Identity struct {
	Subject   string `json:"sub"`
	Name      string `json:"name,omitempty"`
	Email     string `json:"email,omitempty"`
	AvatarURL string `json:"avatarUrl,omitempty"`
}

// Anonymous reports whether no caller identity is present.
func (id Identity) Anonymous() bool {
	return id.Subject == ""
}

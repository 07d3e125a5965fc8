package domain

// OAuthProfile is the subset of an identity provider's profile used to map
// an external identity onto a local User.
type OAuthProfile struct {
	Provider string
	Subject  string
	Email    string
	Name     string
	Picture  string
}

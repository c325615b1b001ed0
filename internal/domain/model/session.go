package model

type UserType string

const (
	UserTypeCommon UserType = "common"
	UserTypeGroup  UserType = "group"
)

// User is the minimal session view: enough for "am I logged in"
// checks and the header avatar, nothing more.
type User struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	Username     string `json:"username"`
	ProfileImage string `json:"profile_image,omitempty"`
	Email        string `json:"email"`
}

// UserProfile is the full profile from /users/my-info/.
// It can lag User while the fetch is in flight.
type UserProfile struct {
	ID               int64    `json:"id"`
	Username         string   `json:"username"`
	Email            string   `json:"email"`
	ProfileImage     string   `json:"profile_image,omitempty"`
	PhoneNumber      string   `json:"phone_number,omitempty"`
	Address          string   `json:"address,omitempty"`
	UserType         UserType `json:"user_type"`
	IsBuyer          bool     `json:"is_buyer"`
	IsSeller         bool     `json:"is_seller"`
	TwoFactorEnabled bool     `json:"two_factor_enable"`
}

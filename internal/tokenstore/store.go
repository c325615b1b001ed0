package tokenstore

import "errors"

// ErrNotFound is returned when a key has no stored value.
var ErrNotFound = errors.New("tokenstore: key not found")

// Keys written by the session layer. The cart key is a best-effort
// cache and is deliberately NOT an auth key: Clear must not touch it.
const (
	KeyAccessToken  = "accessToken"
	KeyRefreshToken = "refreshToken"
	KeyUsername     = "username"
	KeyProfileImage = "profile_image"
	KeyEmail        = "email"
	KeyPhoneNumber  = "phone_number"
	KeyAddress      = "address"
	KeyTwoFactor    = "two_factor_enable"
	KeyCartCache    = "cart"
)

// AuthKeys lists everything Clear removes on logout.
var AuthKeys = []string{
	KeyAccessToken,
	KeyRefreshToken,
	KeyUsername,
	KeyProfileImage,
	KeyEmail,
	KeyPhoneNumber,
	KeyAddress,
	KeyTwoFactor,
}

// Store is persistent key-value storage for tokens and cached user
// fields. Implementations must be safe for concurrent use.
type Store interface {
	Get(key string) (string, error)
	Set(key string, value string) error
	Delete(key string) error
	// Clear removes all auth keys. Non-auth keys (cart cache) survive.
	Clear() error
}

// GetOr reads key and falls back to def when it is absent.
func GetOr(s Store, key string, def string) string {
	v, err := s.Get(key)
	if err != nil {
		return def
	}
	return v
}

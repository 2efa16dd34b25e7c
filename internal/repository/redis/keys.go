package redis

import "github.com/google/uuid"

const (
	// KeyPrefixEntry is the prefix for entry document keys.
	KeyPrefixEntry = "quietpages:entry:"
	// KeyPrefixUserEntries is the prefix for per-user entry id sets.
	KeyPrefixUserEntries = "quietpages:user:"
	// KeyPrefixUser is the prefix for user document keys.
	KeyPrefixUser = "quietpages:account:"
	// KeyPrefixUserEmail is the prefix for the email -> user id index.
	KeyPrefixUserEmail = "quietpages:account:email:"
	// KeyPrefixRefresh is the prefix for refresh token documents.
	KeyPrefixRefresh = "quietpages:refresh:"
	// KeyPrefixUserTokens is the prefix for per-user refresh token jti sets.
	KeyPrefixUserTokens = "quietpages:refresh:user:"
	// KeyPrefixReset is the prefix for password reset documents.
	KeyPrefixReset = "quietpages:reset:"
	// KeyPrefixFeed is the prefix for per-user entry event channels.
	KeyPrefixFeed = "quietpages:feed:"
)

// EntryKey returns the key for an entry document.
func EntryKey(id uuid.UUID) string {
	return KeyPrefixEntry + id.String()
}

// UserEntriesKey returns the key for the set of a user's entry ids.
func UserEntriesKey(userID uuid.UUID) string {
	return KeyPrefixUserEntries + userID.String() + ":entries"
}

// UserKey returns the key for a user document.
func UserKey(id uuid.UUID) string {
	return KeyPrefixUser + id.String()
}

// UserEmailKey returns the key indexing an email to a user id.
func UserEmailKey(email string) string {
	return KeyPrefixUserEmail + email
}

// RefreshKey returns the key for a refresh token document.
func RefreshKey(jti string) string {
	return KeyPrefixRefresh + jti
}

// UserTokensKey returns the key for the set of a user's refresh token jtis.
func UserTokensKey(userID uuid.UUID) string {
	return KeyPrefixUserTokens + userID.String()
}

// ResetKey returns the key for a password reset document.
func ResetKey(token string) string {
	return KeyPrefixReset + token
}

// FeedChannel returns the pub/sub channel carrying a user's entry events.
func FeedChannel(userID uuid.UUID) string {
	return KeyPrefixFeed + userID.String()
}

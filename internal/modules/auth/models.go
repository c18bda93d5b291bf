package auth

// User is an API client. Keys are issued once per user and returned again
// on subsequent credential exchanges.
type User struct {
	ID        int64  `json:"id"`
	Username  string `json:"username"`
	Password  string `json:"-"`
	APIKey    string `json:"api_key"`
	CreatedAt string `json:"created_at"` // RFC3339
}

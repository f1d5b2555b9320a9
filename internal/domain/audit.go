package domain

// MissingResultEntry es un assignment COMPLETED sin resultado persistido.
type MissingResultEntry struct {
	Assignment   Assignment `json:"assignment"`
	UserName     string     `json:"user_name"`
	UserEmail    string     `json:"user_email"`
	HasResponses bool       `json:"has_responses"`
}

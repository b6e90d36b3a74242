package transfer

// AccountConnection is the output of a platform OAuth flow.
type AccountConnection struct {
	Platform        string `json:"platform"`
	AccessToken     string `json:"accessToken"`
	PageAccessToken string `json:"pageAccessToken"`
	UserID          string `json:"userId"`
	AccountName     string `json:"accountName"`
	ExpiresIn       int64  `json:"expiresIn"`
}

package model

// Token is the response payload for a successful login or refresh.
type Token struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// Message is the soft-success envelope used by registration and the admin
// maintenance endpoints.
type Message struct {
	Message string `json:"message"`
}

// SoftError is the soft-failure envelope returned with HTTP 200 for
// recoverable conditions such as duplicate registration. Hard auth failures
// use ErrorResponse instead.
type SoftError struct {
	Error string `json:"error"`
}

// ErrorResponse is the envelope for hard HTTP errors (401/403/406/500).
type ErrorResponse struct {
	Detail string `json:"detail"`
}

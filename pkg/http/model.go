package http

// ErrorBody is the JSON shape of every error response.
type ErrorBody struct {
	Error   string            `json:"error" example:"ERR_BAD_REQUEST"`
	Message string            `json:"message" example:"symbol is required"`
	Status  int               `json:"status" example:"400"`
	Details []ValidationError `json:"details,omitempty"`
}

// ValidationError represents validation error detail.
type ValidationError struct {
	Code    string                 `json:"code,omitempty" example:"ERR_REQUIRED"`
	Field   string                 `json:"field,omitempty" example:"symbol"`
	Message string                 `json:"message,omitempty" example:"symbol is required"`
	Params  map[string]interface{} `json:"params,omitempty"`
}

// HealthResponse is returned by /healthz.
type HealthResponse struct {
	Status string `json:"status" example:"ok"`
}

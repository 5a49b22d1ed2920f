package http

// APIResponse is the envelope used for errors and for endpoints that are not
// bound to the dashboard's raw JSON contract.
type APIResponse struct {
	Status  int         `json:"status" example:"200"`
	Message string      `json:"message" example:"OK"`
	Data    interface{} `json:"data,omitempty"`
}

// ValidationError represents validation error detail.
type ValidationError struct {
	Code    string                 `json:"code,omitempty" example:"ERR_REQUIRED"`
	Field   string                 `json:"field,omitempty" example:"email"`
	Message string                 `json:"message,omitempty" example:"email is required"`
	Params  map[string]interface{} `json:"params,omitempty"`
}

// ListDataResponse represents a list with a total count.
type ListDataResponse struct {
	Rows  interface{} `json:"rows"`
	Total int64       `json:"total"`
}

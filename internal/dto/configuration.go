package dto

// ConfigurationItem represents a setting exposed via API.
type ConfigurationItem struct {
	Key         string `json:"key"`
	Value       string `json:"value"`
	Type        string `json:"type"`
	Description string `json:"description"`
	Default     bool   `json:"default"`
}

// UpdateConfigurationRequest is the body of PUT /settings/:key.
type UpdateConfigurationRequest struct {
	Value string `json:"value" validate:"required"`
}

// ConfigurationUpdate is one entry of a bulk update.
type ConfigurationUpdate struct {
	Key   string `json:"key" validate:"required"`
	Value string `json:"value" validate:"required"`
}

// BulkUpdateConfigurationRequest holds multiple updates saved together.
type BulkUpdateConfigurationRequest struct {
	Items []ConfigurationUpdate `json:"items" validate:"required,min=1,dive"`
}

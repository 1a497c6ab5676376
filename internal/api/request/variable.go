package request

// SetVariable is the body of PUT /services/{id}/variables/{key}.
type SetVariable struct {
	Value    string `json:"value" validate:"max=32768"`
	IsSecret bool   `json:"is_secret"`
}

// AddReference is the body of POST /services/{id}/references.
type AddReference struct {
	SourceServiceID string  `json:"source_service_id" validate:"required"`
	Key             string  `json:"key" validate:"required,envkey"`
	Alias           *string `json:"alias" validate:"omitempty,envkey"`
}

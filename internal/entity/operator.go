package entity

// Operator is the authenticated owner of the assistant's HTTP API.
type Operator struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

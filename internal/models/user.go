package models

// User is the identity handed over by the identity provider through the
// bearer token. The ledger never stores it.
type User struct {
	ID    string `json:"id" example:"42"`
	Email string `json:"email,omitempty" example:"user@example.com"`
	Name  string `json:"name,omitempty" example:"Jane Doe"`
	Role  string `json:"role,omitempty" example:"user"`
}

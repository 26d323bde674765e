package auth

// Identity is the signed-in view of an account, held in the session.
type Identity struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

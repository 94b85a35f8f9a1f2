package models

type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type LoginResponse struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
	User    User   `json:"user"`
}

// Pair returns the credentials carried by the login response.
func (r LoginResponse) Pair() CredentialPair {
	return CredentialPair{Access: r.Access, Refresh: r.Refresh}
}

type RegisterData struct {
	Username  string `json:"username" validate:"required"`
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required"`
	Password2 string `json:"password2" validate:"required,eqfield=Password"`
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
}

type RegisterResponse struct {
	Message string         `json:"message"`
	User    User           `json:"user"`
	Tokens  CredentialPair `json:"tokens"`
}

type LogoutRequest struct {
	Refresh string `json:"refresh"`
}

type PasswordResetRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type PasswordResetResponse struct {
	Message string `json:"message"`
}

type RefreshRequest struct {
	Refresh string `json:"refresh"`
}

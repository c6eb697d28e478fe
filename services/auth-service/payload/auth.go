package payload

type RegisterRequest struct {
	Login    string `json:"login"    validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
	RoleID   int64  `json:"role_id"  validate:"omitempty,oneof=2 3"`
}

type RegisterResponse struct {
	Token string `json:"token"`
}

type LoginRequest struct {
	Login    string `json:"login"    validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type LoginResponse struct {
	Token string `json:"token"`
}

type ChangeLoginRequest struct {
	NewLogin string `json:"new_login" validate:"required,email"`
}

type ForgotPasswordRequest struct {
	Login string `json:"login" validate:"required,email"`
}

type ResetPasswordRequest struct {
	NewPassword    string `json:"new_password"    validate:"required,min=8"`
	RepeatPassword string `json:"repeat_password" validate:"required"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

type ErrorResponse struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
}

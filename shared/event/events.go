package event

// Topic names double as the message-channel keys. They are part of the wire
// contract with the notification worker and must not be renamed casually.
const (
	TopicUserRegistration      = "user-registration"
	TopicUserChange            = "user-change-event"
	TopicUserForgot            = "user-forgot-event"
	TopicResponseNotifications = "response-notifications"
)

// RegistrationEvent is the payload published on registration, login-change
// and password-reset requests. Login is the address the notification should
// be delivered to; Token is the confirmation token to embed in the link.
type RegistrationEvent struct {
	Login string `json:"login"`
	Token string `json:"token"`
}

// ResponseEvent notifies an employer that a candidate responded to a vacancy.
type ResponseEvent struct {
	Username string `json:"username"`
	Response string `json:"response"`
	Email    string `json:"email"`
}

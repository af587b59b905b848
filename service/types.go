// Package service is the HTTP front end: it accepts cookie requests,
// authenticates them, and dispatches the login tasks that produce webhook
// deliveries.
package service

// CookieRequest is the body of POST /get-cookies. Username and password are
// optional; services with magic-link flows take only the email pair.
type CookieRequest struct {
	LoginURL      string `json:"login_url" binding:"required,url"`
	SvcUsername   string `json:"svc_username"`
	SvcEmail      string `json:"svc_email" binding:"required,email"`
	SvcPassword   string `json:"svc_password"`
	EmailPassword string `json:"email_password" binding:"required"`
	CallbackURL   string `json:"callback_url" binding:"required,url"`
}

// TaskStatus is the immediate reply to an accepted request; the result
// arrives later at the callback URL.
type TaskStatus struct {
	Status    string `json:"status"`
	Message   string `json:"message"`
	RequestID string `json:"request_id"`
}

const (
	// StatusProcessing is the Status of every accepted request.
	StatusProcessing = "processing"

	// AcceptedMessage tells the caller where the result will arrive.
	AcceptedMessage = "Task accepted. Results will be sent to webhook URL."
)

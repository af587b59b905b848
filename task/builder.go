// Package task builds the instruction text handed to the agent loop for a
// login run.
package task

import (
	"fmt"
	"strings"

	"github.com/martinemde/magpie/agentloop"
)

// mailboxLoginURL is where the agent retrieves verification codes and magic
// links sent to the service email address.
const mailboxLoginURL = "https://account.proton.me/login"

// Login describes one login to perform. Email and EmailPassword open the
// mailbox that receives verification codes; Username and Password are
// optional depending on the service's auth flow.
type Login struct {
	URL           string
	Username      string
	Password      string
	Email         string
	EmailPassword string
}

// AuthType classifies the flow from the credentials present: services that
// take a username and password versus ones that only send a magic link or
// code to the email address.
func (l Login) AuthType() string {
	if l.Username != "" && l.Password != "" {
		return "username/password"
	}
	return "magic link/email-only"
}

// Build renders the full task text: credentials, numbered steps including
// mailbox verification, the credential-echo prohibition, and the failure
// protocol the loop's failure marker parsing depends on.
func Build(login Login) string {
	var sb strings.Builder

	sb.WriteString("You are a browser automation expert. Your task is to log in to the authentication service.\n\n")
	fmt.Fprintf(&sb, "Login URL: %s\n", login.URL)
	fmt.Fprintf(&sb, "Authentication Type: %s\n\n", login.AuthType())

	sb.WriteString("Credentials:\n")
	fmt.Fprintf(&sb, "- Service Email: %s\n", login.Email)
	fmt.Fprintf(&sb, "- Mailbox Email: %s\n", login.Email)
	fmt.Fprintf(&sb, "- Mailbox Password: %s\n", login.EmailPassword)
	if login.Username != "" {
		fmt.Fprintf(&sb, "- Service Username: %s\n", login.Username)
	}
	if login.Password != "" {
		fmt.Fprintf(&sb, "- Service Password: %s\n", login.Password)
	}
	sb.WriteString("\n")

	sb.WriteString(`SECURITY - DO NOT ECHO CREDENTIALS:
- NEVER repeat passwords, usernames, emails, or verification codes in your responses
- NEVER log or output credential values
- Use generic descriptions like "entered the password" or "submitted verification code"
- Only reference credentials by type, never by value

`)

	sb.WriteString("Steps to follow:\n")
	fmt.Fprintf(&sb, "1. Navigate to %s\n", login.URL)
	if login.Username != "" {
		sb.WriteString("2. Enter the username and submit\n")
	} else {
		sb.WriteString("2. Enter the email if requested\n")
	}
	sb.WriteString("3. If asked for email/phone verification, enter the email\n")
	if login.Password != "" {
		sb.WriteString("4. Enter the password and submit\n")
	} else {
		sb.WriteString("4. Look for a magic link or verification code sent to the email\n")
	}
	fmt.Fprintf(&sb, `5. If a verification code or magic link is required:
   a. Open %s in a new tab or navigate to it
   b. Log in to the mailbox with the provided credentials
   c. Find the latest email from the service with a verification code (6-8 digits) or magic link
   d. Extract the code or click the magic link
   e. Navigate back to the service login page if needed
   f. Enter the verification code if applicable
`, mailboxLoginURL)
	sb.WriteString("6. Wait until successfully logged in\n")
	sb.WriteString("7. Respond with \"Login complete\" when done\n\n")

	fmt.Fprintf(&sb, `CRITICAL - ERROR REPORTING PROTOCOL:
If you encounter an unrecoverable error, respond with EXACTLY this format:
%[1]s <brief description of what went wrong>

Examples:
- %[1]s Bot detection blocked login with message "Could not log you in now"
- %[1]s Login failed after 2 attempts, password may be incorrect
- %[1]s Magic link not received after 2 minutes

`, agentloop.FailureMarker)

	sb.WriteString(`IMPORTANT:
- Use browser_snapshot before each interaction to see page state
- Adapt to actual page content, don't assume selectors
- If any step fails 2 times in a row (like login submission), use TASK_FAILED protocol
- Do NOT keep retrying failed actions - this could lock the account
- If you see console errors indicating bot detection or API failures, use TASK_FAILED protocol immediately
- If the service shows error message "Could not log you in now. Please try again later.", use TASK_FAILED protocol IMMEDIATELY
`)

	return sb.String()
}

package task

import (
	"strings"
	"testing"

	"github.com/martinemde/magpie/agentloop"
)

func passwordLogin() Login {
	return Login{
		URL:           "https://example.com/login",
		Username:      "svc-user",
		Password:      "svc-pass",
		Email:         "agent@proton.me",
		EmailPassword: "mailbox-pass",
	}
}

func TestBuildPasswordFlow(t *testing.T) {
	text := Build(passwordLogin())

	for _, want := range []string{
		"Login URL: https://example.com/login",
		"Authentication Type: username/password",
		"- Service Email: agent@proton.me",
		"- Mailbox Password: mailbox-pass",
		"- Service Username: svc-user",
		"- Service Password: svc-pass",
		"2. Enter the username and submit",
		"4. Enter the password and submit",
		"https://account.proton.me/login",
	} {
		if !strings.Contains(text, want) {
			t.Errorf("expected task text to contain %q", want)
		}
	}
}

func TestBuildMagicLinkFlow(t *testing.T) {
	login := passwordLogin()
	login.Username = ""
	login.Password = ""
	text := Build(login)

	if !strings.Contains(text, "Authentication Type: magic link/email-only") {
		t.Error("expected magic-link auth type")
	}
	if !strings.Contains(text, "2. Enter the email if requested") {
		t.Error("expected email-entry step")
	}
	if !strings.Contains(text, "4. Look for a magic link or verification code") {
		t.Error("expected magic-link step")
	}
	if strings.Contains(text, "Service Username") {
		t.Error("expected no username line without a username")
	}
	if strings.Contains(text, "Service Password") {
		t.Error("expected no password line without a password")
	}
}

func TestBuildUsernameWithoutPassword(t *testing.T) {
	// A username alone is not a password flow.
	login := passwordLogin()
	login.Password = ""

	if got := login.AuthType(); got != "magic link/email-only" {
		t.Errorf("expected auth type %q, got %q", "magic link/email-only", got)
	}
	text := Build(login)
	if !strings.Contains(text, "- Service Username: svc-user") {
		t.Error("expected the username still listed in credentials")
	}
}

func TestBuildFailureProtocol(t *testing.T) {
	text := Build(passwordLogin())

	if !strings.Contains(text, agentloop.FailureMarker+" <brief description of what went wrong>") {
		t.Error("expected the failure marker format line")
	}
	if !strings.Contains(text, agentloop.FailureMarker+" Bot detection blocked login") {
		t.Error("expected a failure marker example")
	}
	if !strings.Contains(text, "Do NOT keep retrying failed actions") {
		t.Error("expected the retry warning")
	}
}

func TestBuildCredentialEchoProhibition(t *testing.T) {
	text := Build(passwordLogin())
	if !strings.Contains(text, "NEVER repeat passwords, usernames, emails, or verification codes") {
		t.Error("expected the credential-echo prohibition")
	}
}

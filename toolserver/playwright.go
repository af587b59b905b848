package toolserver

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// DefaultUserAgent mirrors a current desktop Chrome build so automated
// sessions look like ordinary browser traffic.
const DefaultUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/140.0.0.0 Safari/537.36"

// initScriptName is the file SetupProfile writes into the profile directory.
const initScriptName = "stealth.js"

// stealthScript masks the automation fingerprints login pages check most
// often. It runs before any page script.
const stealthScript = `Object.defineProperty(navigator, 'webdriver', { get: () => undefined });

window.chrome = window.chrome || { runtime: {} };

Object.defineProperty(navigator, 'languages', {
  get: () => ['en-US', 'en'],
});

Object.defineProperty(navigator, 'plugins', {
  get: () => [1, 2, 3, 4, 5],
});

const originalQuery = window.navigator.permissions.query.bind(window.navigator.permissions);
window.navigator.permissions.query = (parameters) =>
  parameters.name === 'notifications'
    ? Promise.resolve({ state: Notification.permission })
    : originalQuery(parameters);
`

// SetupProfile ensures the persistent browser profile directory exists and
// writes the stealth init script into it, returning the script path. The
// same profile is reused across runs so cookies survive between logins.
func SetupProfile(profileDir string) (string, error) {
	if err := os.MkdirAll(profileDir, 0o755); err != nil {
		return "", fmt.Errorf("create browser profile: %w", err)
	}
	scriptPath := filepath.Join(profileDir, initScriptName)
	if err := os.WriteFile(scriptPath, []byte(stealthScript), 0o644); err != nil {
		return "", fmt.Errorf("write init script: %w", err)
	}
	return scriptPath, nil
}

// PlaywrightServer describes how to launch the Playwright MCP server. The
// zero value launches headless chromium with the default user agent and no
// persistent profile.
type PlaywrightServer struct {
	Browser    string
	UserAgent  string
	ProfileDir string
	InitScript string
}

// Command returns the executable used to launch the server.
func (p PlaywrightServer) Command() string {
	return "npx"
}

// Args returns the launch arguments. When ProfileDir is set it doubles as
// the output directory so network traces land under <profile>/traces.
func (p PlaywrightServer) Args() []string {
	browser := p.Browser
	if browser == "" {
		browser = "chromium"
	}
	userAgent := p.UserAgent
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}

	args := []string{
		"@playwright/mcp@latest",
		"--browser=" + browser,
		"--no-sandbox",
		"--save-trace",
		"--user-agent=" + userAgent,
	}
	if p.ProfileDir != "" {
		args = append(args,
			"--user-data-dir="+p.ProfileDir,
			"--output-dir="+p.ProfileDir,
		)
	}
	if p.InitScript != "" {
		args = append(args, "--init-script="+p.InitScript)
	}
	return args
}

// Connect launches the server and completes the MCP handshake.
func (p PlaywrightServer) Connect(ctx context.Context, opts ...SessionOption) (*StdioSession, error) {
	return Connect(ctx, p.Command(), nil, p.Args(), opts...)
}

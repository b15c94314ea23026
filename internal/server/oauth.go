package server

import (
	"context"
	"html/template"
	"net/http"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/reeltrack/internal/models"
	"github.com/desertthunder/reeltrack/internal/services"
	"github.com/desertthunder/reeltrack/internal/shared"
)

// OAuthExchanger completes a provider code exchange.
type OAuthExchanger interface {
	ExchangeOAuth(ctx context.Context, provider, code, redirectURI string) (*models.AuthResult, error)
}

// StateStore issues and redeems single-use OAuth states.
type StateStore interface {
	Create(state *models.OAuthState) error
	Consume(value, provider string) (*models.OAuthState, error)
}

// SessionRecorder remembers tokens issued through this server.
type SessionRecorder interface {
	Record(token string, user *models.User, provider string) (*models.AuthSession, error)
}

// OAuthHandler runs the popup OAuth flow.
//
// The popup is opened by the page on /auth/oauth/{provider}. The callback never redirects the popup
// back into the app; it posts {type, success, message} to the opener, restricted to the site
// origin, and closes itself.
type OAuthHandler struct {
	providers map[string]*services.OAuthProvider
	states    StateStore
	sessions  SessionRecorder
	backend   OAuthExchanger
	origin    string
	secure    bool
	logger    *log.Logger
}

// NewOAuthHandler creates the popup flow handler. origin is the site origin allowed to receive
// the result message.
func NewOAuthHandler(
	providers map[string]*services.OAuthProvider,
	states StateStore,
	sessions SessionRecorder,
	backend OAuthExchanger,
	origin string,
	secure bool,
	logger *log.Logger,
) *OAuthHandler {
	return &OAuthHandler{
		providers: providers,
		states:    states,
		sessions:  sessions,
		backend:   backend,
		origin:    origin,
		secure:    secure,
		logger:    shared.WithLogger(logger, "component", "oauth"),
	}
}

// Routes returns the HTTP routes this handler serves.
func (h *OAuthHandler) Routes() []Route {
	return []Route{
		{Method: http.MethodGet, Pattern: "/auth/oauth/{provider}", Handler: h.Start},
		{Method: http.MethodGet, Pattern: "/auth/oauth/{provider}/callback", Handler: h.Callback},
	}
}

// Start issues a state and redirects the popup to the provider consent page.
func (h *OAuthHandler) Start(w http.ResponseWriter, r *http.Request) {
	name := Param(r, "provider")
	provider, ok := h.providers[name]
	if !ok {
		h.render(w, http.StatusNotFound, false, "Unknown login provider")
		return
	}

	state := models.NewOAuthState(name)
	if err := h.states.Create(state); err != nil {
		h.logger.Error("failed to create oauth state", "provider", name, "error", err)
		h.render(w, http.StatusInternalServerError, false, "Could not start login")
		return
	}

	http.Redirect(w, r, provider.AuthURL(state.ID()), http.StatusFound)
}

// Callback validates the state, exchanges the code through the backend and reports the result to
// the opener window.
func (h *OAuthHandler) Callback(w http.ResponseWriter, r *http.Request) {
	name := Param(r, "provider")
	provider, ok := h.providers[name]
	if !ok {
		h.render(w, http.StatusNotFound, false, "Unknown login provider")
		return
	}

	q := r.URL.Query()
	if _, err := h.states.Consume(q.Get("state"), name); err != nil {
		h.logger.Warn("rejected oauth callback", "provider", name, "error", err)
		h.render(w, http.StatusBadRequest, false, "Login session expired, please try again")
		return
	}

	code := q.Get("code")
	if code == "" {
		msg := "Login was cancelled"
		if desc := q.Get("error_description"); desc != "" {
			msg = desc
		}
		h.render(w, http.StatusBadRequest, false, msg)
		return
	}

	result, err := h.backend.ExchangeOAuth(r.Context(), name, code, provider.RedirectURL())
	if err != nil {
		status := StatusFor(err)
		if status >= http.StatusInternalServerError {
			h.logger.Error("oauth exchange failed", "provider", name, "error", err)
		}
		h.render(w, status, false, PublicMessage(err, status))
		return
	}

	if h.sessions != nil {
		if _, err := h.sessions.Record(result.Token, result.User, name); err != nil {
			h.logger.Error("failed to record session", "provider", name, "error", err)
		}
	}

	SetAuthCookie(w, result.Token, h.secure)
	h.render(w, http.StatusOK, true, "Signed in")
}

var popupTemplate = template.Must(template.New("popup").Parse(`<!DOCTYPE html>
<html>
<head>
    <meta charset="utf-8">
    <title>{{if .Success}}Signed in{{else}}Sign in failed{{end}}</title>
    <style>
        body { font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", Roboto, sans-serif;
               display: flex; align-items: center; justify-content: center; height: 100vh;
               margin: 0; background: #111; color: #eee; }
        .container { text-align: center; padding: 2rem; }
        h1 { margin: 0 0 1rem 0; }
    </style>
</head>
<body>
    <div class="container">
        <h1>{{if .Success}}Signed in{{else}}Sign in failed{{end}}</h1>
        <p>{{.Message}}</p>
        <p>You can close this window.</p>
    </div>
    <script>
    (function () {
        var payload = {{.Payload}};
        if (window.opener && !window.opener.closed) {
            window.opener.postMessage(payload, {{.Origin}});
        }
        window.close();
    })();
    </script>
</body>
</html>
`))

type popupData struct {
	Success bool
	Message string
	Origin  string
	Payload map[string]any
}

func (h *OAuthHandler) render(w http.ResponseWriter, status int, success bool, message string) {
	data := popupData{
		Success: success,
		Message: message,
		Origin:  h.origin,
		Payload: map[string]any{"type": "oauth", "success": success, "message": message},
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	if err := popupTemplate.Execute(w, data); err != nil {
		h.logger.Error("failed to render oauth popup", "error", err)
	}
}

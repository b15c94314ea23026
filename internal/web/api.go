package web

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/reeltrack/internal/models"
	"github.com/desertthunder/reeltrack/internal/server"
	"github.com/desertthunder/reeltrack/internal/shared"
)

const popularPageSize = 20

// APIHandler serves the local JSON API.
type APIHandler struct {
	backend  Backend
	sessions Sessions
	secure   bool
	logger   *log.Logger
}

// NewAPIHandler creates the API handler. sessions may be nil.
func NewAPIHandler(backend Backend, sessions Sessions, secure bool, logger *log.Logger) *APIHandler {
	return &APIHandler{
		backend:  backend,
		sessions: sessions,
		secure:   secure,
		logger:   shared.WithLogger(logger, "component", "api"),
	}
}

// Routes returns the HTTP routes this handler serves.
func (h *APIHandler) Routes() []server.Route {
	auth := server.RequireAuth
	return []server.Route{
		{Method: http.MethodGet, Pattern: "/api/content/popular", Handler: h.Popular},
		{Method: http.MethodGet, Pattern: "/api/content/search", Handler: h.Search},
		{Method: http.MethodGet, Pattern: "/api/content/{id}", Handler: h.Content},
		{Method: http.MethodGet, Pattern: "/api/content/{id}/reviews", Handler: h.Reviews},

		{Method: http.MethodPost, Pattern: "/api/reviews", Handler: auth(h.CreateReview)},
		{Method: http.MethodDelete, Pattern: "/api/reviews/{id}", Handler: auth(h.DeleteReview)},
		{Method: http.MethodPost, Pattern: "/api/reviews/{id}/reaction", Handler: auth(h.React)},

		{Method: http.MethodGet, Pattern: "/api/watchlist", Handler: auth(h.Watchlist)},
		{Method: http.MethodPost, Pattern: "/api/watchlist", Handler: auth(h.AddToWatchlist)},
		{Method: http.MethodGet, Pattern: "/api/watchlist/{contentId}/exists", Handler: auth(h.WatchlistExists)},
		{Method: http.MethodPatch, Pattern: "/api/watchlist/{contentId}", Handler: auth(h.UpdateWatchlist)},
		{Method: http.MethodDelete, Pattern: "/api/watchlist/{contentId}", Handler: auth(h.RemoveFromWatchlist)},

		{Method: http.MethodPost, Pattern: "/api/auth/login", Handler: h.Login},
		{Method: http.MethodPost, Pattern: "/api/auth/register", Handler: h.Register},
		{Method: http.MethodPost, Pattern: "/api/auth/logout", Handler: h.Logout},
		{Method: http.MethodGet, Pattern: "/api/auth/verify-email", Handler: h.VerifyEmail},
		{Method: http.MethodGet, Pattern: "/api/auth/me", Handler: auth(h.Me)},

		{Method: http.MethodGet, Pattern: "/api/profile", Handler: auth(h.Profile)},
		{Method: http.MethodPatch, Pattern: "/api/profile", Handler: auth(h.UpdateProfile)},
	}
}

func (h *APIHandler) fail(w http.ResponseWriter, err error) {
	server.WriteError(w, h.logger, err)
}

func parsePage(r *http.Request) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get("page"))
	if raw == "" {
		return 1, nil
	}
	page, err := strconv.Atoi(raw)
	if err != nil || page < 1 {
		return 0, shared.ErrInvalidInput
	}
	return page, nil
}

// Popular lists popular movies or series.
func (h *APIHandler) Popular(w http.ResponseWriter, r *http.Request) {
	ct, err := models.ParseContentType(r.URL.Query().Get("type"))
	if err != nil {
		h.fail(w, err)
		return
	}
	page, err := parsePage(r)
	if err != nil {
		server.WriteMessage(w, http.StatusBadRequest, "page must be a positive integer")
		return
	}

	result, err := h.backend.Popular(r.Context(), ct, page, popularPageSize)
	if err != nil {
		h.fail(w, err)
		return
	}
	server.WriteData(w, http.StatusOK, result)
}

// Search runs a catalog search.
func (h *APIHandler) Search(w http.ResponseWriter, r *http.Request) {
	q := strings.TrimSpace(r.URL.Query().Get("q"))
	if q == "" {
		server.WriteMessage(w, http.StatusBadRequest, "q is required")
		return
	}
	page, err := parsePage(r)
	if err != nil {
		server.WriteMessage(w, http.StatusBadRequest, "page must be a positive integer")
		return
	}

	result, err := h.backend.Search(r.Context(), q, page)
	if err != nil {
		h.fail(w, err)
		return
	}
	server.WriteData(w, http.StatusOK, result)
}

// Content returns one content item.
func (h *APIHandler) Content(w http.ResponseWriter, r *http.Request) {
	c, err := h.backend.Content(r.Context(), server.Param(r, "id"))
	if err != nil {
		h.fail(w, err)
		return
	}
	server.WriteData(w, http.StatusOK, c)
}

// Reviews lists the reviews of a content item, with the caller's reaction when signed in.
func (h *APIHandler) Reviews(w http.ResponseWriter, r *http.Request) {
	reviews, err := h.backend.Reviews(r.Context(), server.Token(r.Context()), server.Param(r, "id"))
	if err != nil {
		h.fail(w, err)
		return
	}
	server.WriteData(w, http.StatusOK, reviews)
}

// CreateReview posts a review.
func (h *APIHandler) CreateReview(w http.ResponseWriter, r *http.Request) {
	var body models.NewReview
	if err := server.DecodeJSON(r, &body); err != nil {
		h.fail(w, err)
		return
	}
	if err := body.Validate(); err != nil {
		h.fail(w, err)
		return
	}

	review, err := h.backend.CreateReview(r.Context(), server.Token(r.Context()), body)
	if err != nil {
		h.fail(w, err)
		return
	}
	server.WriteData(w, http.StatusCreated, review)
}

// DeleteReview removes one of the caller's reviews.
func (h *APIHandler) DeleteReview(w http.ResponseWriter, r *http.Request) {
	if err := h.backend.DeleteReview(r.Context(), server.Token(r.Context()), server.Param(r, "id")); err != nil {
		h.fail(w, err)
		return
	}
	server.WriteData(w, http.StatusOK, nil)
}

type reactionBody struct {
	Type string `json:"type"`
}

// React sends LIKE, DISLIKE or UNDO for a review.
func (h *APIHandler) React(w http.ResponseWriter, r *http.Request) {
	var body reactionBody
	if err := server.DecodeJSON(r, &body); err != nil {
		h.fail(w, err)
		return
	}
	reaction, err := models.ParseReactionType(body.Type)
	if err != nil {
		h.fail(w, err)
		return
	}

	review, err := h.backend.React(r.Context(), server.Token(r.Context()), server.Param(r, "id"), reaction)
	if err != nil {
		h.fail(w, err)
		return
	}
	server.WriteData(w, http.StatusOK, review)
}

// Watchlist lists the caller's watchlist.
func (h *APIHandler) Watchlist(w http.ResponseWriter, r *http.Request) {
	items, err := h.backend.Watchlist(r.Context(), server.Token(r.Context()))
	if err != nil {
		h.fail(w, err)
		return
	}
	server.WriteData(w, http.StatusOK, items)
}

// WatchlistExists reports whether a content item is on the caller's watchlist.
func (h *APIHandler) WatchlistExists(w http.ResponseWriter, r *http.Request) {
	exists, err := h.backend.WatchlistExists(r.Context(), server.Token(r.Context()), server.Param(r, "contentId"))
	if err != nil {
		h.fail(w, err)
		return
	}
	server.WriteData(w, http.StatusOK, map[string]bool{"exists": exists})
}

type watchlistBody struct {
	ContentID string `json:"contentId"`
	Status    string `json:"status"`
}

// AddToWatchlist saves a content item.
func (h *APIHandler) AddToWatchlist(w http.ResponseWriter, r *http.Request) {
	var body watchlistBody
	if err := server.DecodeJSON(r, &body); err != nil {
		h.fail(w, err)
		return
	}
	if strings.TrimSpace(body.ContentID) == "" {
		server.WriteMessage(w, http.StatusBadRequest, "contentId is required")
		return
	}
	status, err := models.ParseWatchStatus(body.Status)
	if err != nil {
		h.fail(w, err)
		return
	}

	item, err := h.backend.AddToWatchlist(r.Context(), server.Token(r.Context()), body.ContentID, status)
	if err != nil {
		h.fail(w, err)
		return
	}
	server.WriteData(w, http.StatusCreated, item)
}

// UpdateWatchlist changes the status of a saved item.
func (h *APIHandler) UpdateWatchlist(w http.ResponseWriter, r *http.Request) {
	var body watchlistBody
	if err := server.DecodeJSON(r, &body); err != nil {
		h.fail(w, err)
		return
	}
	if strings.TrimSpace(body.Status) == "" {
		server.WriteMessage(w, http.StatusBadRequest, "status is required")
		return
	}
	status, err := models.ParseWatchStatus(body.Status)
	if err != nil {
		h.fail(w, err)
		return
	}

	item, err := h.backend.UpdateWatchlist(r.Context(), server.Token(r.Context()), server.Param(r, "contentId"), status)
	if err != nil {
		h.fail(w, err)
		return
	}
	server.WriteData(w, http.StatusOK, item)
}

// RemoveFromWatchlist deletes a saved item. Unknown ids answer with the backend's 4xx.
func (h *APIHandler) RemoveFromWatchlist(w http.ResponseWriter, r *http.Request) {
	if err := h.backend.RemoveFromWatchlist(r.Context(), server.Token(r.Context()), server.Param(r, "contentId")); err != nil {
		h.fail(w, err)
		return
	}
	server.WriteData(w, http.StatusOK, nil)
}

// signIn records the session and sets the auth cookie.
func (h *APIHandler) signIn(w http.ResponseWriter, result *models.AuthResult, provider string) {
	if result.Token == "" {
		return
	}
	if h.sessions != nil {
		if _, err := h.sessions.Record(result.Token, result.User, provider); err != nil {
			h.logger.Error("failed to record session", "error", err)
		}
	}
	server.SetAuthCookie(w, result.Token, h.secure)
}

// Login exchanges credentials for a token stored in the auth cookie.
func (h *APIHandler) Login(w http.ResponseWriter, r *http.Request) {
	var creds models.Credentials
	if err := server.DecodeJSON(r, &creds); err != nil {
		h.fail(w, err)
		return
	}
	if strings.TrimSpace(creds.Email) == "" || creds.Password == "" {
		server.WriteMessage(w, http.StatusBadRequest, "email and password are required")
		return
	}

	result, err := h.backend.Login(r.Context(), creds)
	if err != nil {
		h.fail(w, err)
		return
	}
	h.signIn(w, result, "password")
	server.WriteData(w, http.StatusOK, result.User)
}

// Register creates an account. Most accounts must verify their email before they can sign in.
func (h *APIHandler) Register(w http.ResponseWriter, r *http.Request) {
	var creds models.Credentials
	if err := server.DecodeJSON(r, &creds); err != nil {
		h.fail(w, err)
		return
	}

	result, err := h.backend.Register(r.Context(), creds)
	if err != nil {
		h.fail(w, err)
		return
	}
	h.signIn(w, result, "password")
	server.WriteData(w, http.StatusCreated, result.User)
}

// Logout revokes the session and clears the cookie. It succeeds without a session.
func (h *APIHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if token := server.TokenFromRequest(r); token != "" && h.sessions != nil {
		if err := h.sessions.Revoke(token); err != nil {
			h.logger.Error("failed to revoke session", "error", err)
		}
	}
	server.ClearAuthCookie(w, h.secure)
	server.WriteData(w, http.StatusOK, nil)
}

// VerifyEmail redeems a verification token and signs the user in.
func (h *APIHandler) VerifyEmail(w http.ResponseWriter, r *http.Request) {
	token := strings.TrimSpace(r.URL.Query().Get("token"))
	if token == "" {
		server.WriteMessage(w, http.StatusBadRequest, "verification token is required")
		return
	}

	result, err := h.backend.VerifyEmail(r.Context(), token)
	if err != nil {
		h.fail(w, err)
		return
	}
	h.signIn(w, result, "email")
	server.WriteData(w, http.StatusOK, result.User)
}

// Me returns the signed-in user.
func (h *APIHandler) Me(w http.ResponseWriter, r *http.Request) {
	user, err := h.backend.Me(r.Context(), server.Token(r.Context()))
	if err != nil {
		h.fail(w, err)
		return
	}
	server.WriteData(w, http.StatusOK, user)
}

// Profile returns the caller's profile.
func (h *APIHandler) Profile(w http.ResponseWriter, r *http.Request) {
	user, err := h.backend.Profile(r.Context(), server.Token(r.Context()))
	if err != nil {
		h.fail(w, err)
		return
	}
	server.WriteData(w, http.StatusOK, user)
}

// UpdateProfile changes the caller's name or avatar.
func (h *APIHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	var update models.ProfileUpdate
	if err := server.DecodeJSON(r, &update); err != nil {
		h.fail(w, err)
		return
	}
	if update.Name == nil && update.AvatarURL == nil {
		server.WriteMessage(w, http.StatusBadRequest, "nothing to update")
		return
	}

	user, err := h.backend.UpdateProfile(r.Context(), server.Token(r.Context()), update)
	if err != nil {
		h.fail(w, err)
		return
	}
	server.WriteData(w, http.StatusOK, user)
}

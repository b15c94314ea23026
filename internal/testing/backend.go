package testing

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sort"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/desertthunder/reeltrack/internal/models"
)

type mockReview struct {
	review    models.Review
	reactions map[string]models.ReactionType // user ID -> reaction
}

type mockUser struct {
	user     models.User
	password string
	token    string
}

type failure struct {
	method string
	prefix string
	status int
}

// MockBackend is an in-memory stand-in for the upstream REST API.
//
// Catalog endpoints answer with bare JSON and every other endpoint with a {success, data}
// envelope, which mirrors the mixed shapes the real backend produces.
type MockBackend struct {
	*httptest.Server

	mu         sync.Mutex
	contents   map[string]models.Content
	order      []string
	reviews    map[string]*mockReview
	watchlists map[string]map[string]models.WatchlistItem
	users      map[string]*mockUser // token -> user
	verify     map[string]string    // verification token -> user token
	failures   []failure
	calls      map[string]int
	nextID     int
}

// NewMockBackend starts a MockBackend that is closed when the test ends.
func NewMockBackend(t testing.TB) *MockBackend {
	t.Helper()

	m := &MockBackend{
		contents:   make(map[string]models.Content),
		reviews:    make(map[string]*mockReview),
		watchlists: make(map[string]map[string]models.WatchlistItem),
		users:      make(map[string]*mockUser),
		verify:     make(map[string]string),
		calls:      make(map[string]int),
	}
	m.Server = httptest.NewServer(m.routes())
	t.Cleanup(m.Close)
	return m
}

func (m *MockBackend) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(m.track)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeRaw(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Get("/content/popular", m.popular)
	r.Get("/content/search", m.search)
	r.Get("/content/{id}", m.content)

	r.Get("/reviews", m.listReviews)
	r.Post("/reviews", m.createReview)
	r.Delete("/reviews/{id}", m.deleteReview)
	r.Post("/reviews/{id}/reaction", m.react)

	r.Get("/watchlist", m.listWatchlist)
	r.Get("/watchlist/{id}/exists", m.watchlistExists)
	r.Post("/watchlist/{id}", m.writeWatchlist)
	r.Patch("/watchlist/{id}", m.writeWatchlist)
	r.Delete("/watchlist/{id}", m.removeWatchlist)

	r.Post("/auth/login", m.login)
	r.Post("/auth/register", m.register)
	r.Get("/auth/verify-email", m.verifyEmail)
	r.Post("/auth/oauth", m.oauth)
	r.Get("/auth/me", m.me)
	r.Get("/users/me", m.me)
	r.Patch("/users/me", m.updateProfile)
	return r
}

// track counts calls and applies forced failures.
func (m *MockBackend) track(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		m.mu.Lock()
		m.calls[r.Method+" "+r.URL.Path]++
		var status int
		for _, f := range m.failures {
			if (f.method == "" || f.method == r.Method) && strings.HasPrefix(r.URL.Path, f.prefix) {
				status = f.status
			}
		}
		m.mu.Unlock()

		if status != 0 {
			writeError(w, status, "forced failure")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// FailOn makes every request matching method (empty for any) and path prefix answer with status.
func (m *MockBackend) FailOn(method, prefix string, status int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures = append(m.failures, failure{method: method, prefix: prefix, status: status})
}

// ClearFailures removes every forced failure.
func (m *MockBackend) ClearFailures() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures = nil
}

// Calls returns how many times method and path were requested.
func (m *MockBackend) Calls(method, path string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[method+" "+path]
}

// AddContent stores items in popularity order.
func (m *MockBackend) AddContent(items ...models.Content) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range items {
		if _, ok := m.contents[c.ID]; !ok {
			m.order = append(m.order, c.ID)
		}
		m.contents[c.ID] = c
	}
}

// SeedContent adds n items of type ct with IDs "<ct>-<i>".
func (m *MockBackend) SeedContent(ct models.ContentType, n int) {
	items := make([]models.Content, 0, n)
	for i := 1; i <= n; i++ {
		items = append(items, models.Content{
			ID:          fmt.Sprintf("%s-%d", ct, i),
			Type:        ct,
			Title:       fmt.Sprintf("%s #%d", strings.ToUpper(string(ct[:1]))+string(ct[1:]), i),
			PosterURL:   fmt.Sprintf("https://img.example.com/%s-%d.jpg", ct, i),
			ReleaseDate: "2024-01-01",
			Popularity:  float64(n - i),
		})
	}
	m.AddContent(items...)
}

// AddUser registers a verified account and returns its bearer token.
func (m *MockBackend) AddUser(email, password, name string) (string, models.User) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.addUserLocked(email, password, name, true)
}

func (m *MockBackend) addUserLocked(email, password, name string, verified bool) (string, models.User) {
	m.nextID++
	user := models.User{ID: "user-" + strconv.Itoa(m.nextID), Email: email, Name: name, Verified: verified}
	token := "token-" + user.ID
	m.users[token] = &mockUser{user: user, password: password, token: token}
	return token, user
}

// AddVerification registers an email verification token for the account behind userToken.
func (m *MockBackend) AddVerification(code, userToken string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.verify[code] = userToken
}

// AddReview stores a review with no reactions.
func (m *MockBackend) AddReview(review models.Review) {
	m.mu.Lock()
	defer m.mu.Unlock()
	review.UserReaction = nil
	m.reviews[review.ReviewID] = &mockReview{review: review, reactions: make(map[string]models.ReactionType)}
}

// Review returns the stored review as seen by userToken.
func (m *MockBackend) Review(id, userToken string) (models.Review, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	mr, ok := m.reviews[id]
	if !ok {
		return models.Review{}, false
	}
	return m.viewLocked(mr, userToken), true
}

// InWatchlist reports whether contentID is saved for userToken.
func (m *MockBackend) InWatchlist(userToken, contentID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[userToken]
	if !ok {
		return false
	}
	_, ok = m.watchlists[u.user.ID][contentID]
	return ok
}

func (m *MockBackend) viewLocked(mr *mockReview, token string) models.Review {
	out := mr.review
	out.UserReaction = nil
	if u, ok := m.users[token]; ok {
		if r, ok := mr.reactions[u.user.ID]; ok {
			r := r
			out.UserReaction = &r
		}
	}
	return out
}

func (m *MockBackend) userFor(r *http.Request) (*mockUser, bool) {
	token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	u, ok := m.users[token]
	return u, ok
}

func (m *MockBackend) popular(w http.ResponseWriter, r *http.Request) {
	m.mu.Lock()
	defer m.mu.Unlock()

	ct := models.ContentType(r.URL.Query().Get("type"))
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 20
	}

	var matching []models.Content
	for _, id := range m.order {
		if c := m.contents[id]; ct == "" || c.Type == ct {
			matching = append(matching, c)
		}
	}
	writeRaw(w, http.StatusOK, paginate(matching, page, limit))
}

func (m *MockBackend) search(w http.ResponseWriter, r *http.Request) {
	m.mu.Lock()
	defer m.mu.Unlock()

	q := strings.ToLower(r.URL.Query().Get("q"))
	if q == "" {
		writeError(w, http.StatusBadRequest, "q is required")
		return
	}
	var matching []models.Content
	for _, id := range m.order {
		if c := m.contents[id]; strings.Contains(strings.ToLower(c.Title), q) {
			matching = append(matching, c)
		}
	}
	writeRaw(w, http.StatusOK, paginate(matching, 1, 50))
}

func paginate(items []models.Content, page, limit int) models.ContentPage {
	total := (len(items) + limit - 1) / limit
	start := (page - 1) * limit
	if start > len(items) {
		start = len(items)
	}
	end := min(start+limit, len(items))
	return models.ContentPage{Items: append([]models.Content{}, items[start:end]...), Page: page, TotalPages: total}
}

func (m *MockBackend) content(w http.ResponseWriter, r *http.Request) {
	m.mu.Lock()
	defer m.mu.Unlock()

	c, ok := m.contents[chi.URLParam(r, "id")]
	if !ok {
		writeError(w, http.StatusNotFound, "content not found")
		return
	}
	writeRaw(w, http.StatusOK, c)
}

func (m *MockBackend) listReviews(w http.ResponseWriter, r *http.Request) {
	m.mu.Lock()
	defer m.mu.Unlock()

	contentID := r.URL.Query().Get("contentId")
	token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	out := []models.Review{}
	for _, mr := range m.reviews {
		if mr.review.ContentID == contentID {
			out = append(out, m.viewLocked(mr, token))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ReviewID < out[j].ReviewID })
	writeEnvelope(w, http.StatusOK, out)
}

func (m *MockBackend) createReview(w http.ResponseWriter, r *http.Request) {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.userFor(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var body models.NewReview
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.ContentID == "" {
		writeError(w, http.StatusBadRequest, "invalid review")
		return
	}
	if _, ok := m.contents[body.ContentID]; !ok {
		writeError(w, http.StatusNotFound, "content not found")
		return
	}

	m.nextID++
	review := models.Review{
		ReviewID:  "review-" + strconv.Itoa(m.nextID),
		ContentID: body.ContentID,
		Author:    u.user.Name,
		Rating:    body.Rating,
		Body:      body.Body,
		CreatedAt: time.Now().UTC(),
	}
	m.reviews[review.ReviewID] = &mockReview{review: review, reactions: make(map[string]models.ReactionType)}
	writeEnvelope(w, http.StatusCreated, review)
}

func (m *MockBackend) deleteReview(w http.ResponseWriter, r *http.Request) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.userFor(r); !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	id := chi.URLParam(r, "id")
	if _, ok := m.reviews[id]; !ok {
		writeError(w, http.StatusNotFound, "review not found")
		return
	}
	delete(m.reviews, id)
	writeEnvelope(w, http.StatusOK, nil)
}

// react applies LIKE, DISLIKE and UNDO. Repeating the current reaction is a no-op.
func (m *MockBackend) react(w http.ResponseWriter, r *http.Request) {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.userFor(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	mr, ok := m.reviews[chi.URLParam(r, "id")]
	if !ok {
		writeError(w, http.StatusNotFound, "review not found")
		return
	}

	var body struct {
		Type models.ReactionType `json:"type"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || !body.Type.Valid() {
		writeError(w, http.StatusBadRequest, "invalid reaction")
		return
	}

	switch mr.reactions[u.user.ID] {
	case models.ReactionLike:
		mr.review.Likes--
	case models.ReactionDislike:
		mr.review.Dislikes--
	}
	delete(mr.reactions, u.user.ID)

	switch body.Type {
	case models.ReactionLike:
		mr.review.Likes++
		mr.reactions[u.user.ID] = body.Type
	case models.ReactionDislike:
		mr.review.Dislikes++
		mr.reactions[u.user.ID] = body.Type
	}
	writeEnvelope(w, http.StatusOK, m.viewLocked(mr, u.token))
}

func (m *MockBackend) listWatchlist(w http.ResponseWriter, r *http.Request) {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.userFor(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	out := []models.WatchlistItem{}
	for _, item := range m.watchlists[u.user.ID] {
		out = append(out, item)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ContentID < out[j].ContentID })
	writeEnvelope(w, http.StatusOK, out)
}

func (m *MockBackend) watchlistExists(w http.ResponseWriter, r *http.Request) {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.userFor(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	_, exists := m.watchlists[u.user.ID][chi.URLParam(r, "id")]
	writeEnvelope(w, http.StatusOK, map[string]bool{"exists": exists})
}

func (m *MockBackend) writeWatchlist(w http.ResponseWriter, r *http.Request) {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.userFor(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	id := chi.URLParam(r, "id")
	c, ok := m.contents[id]
	if !ok {
		writeError(w, http.StatusNotFound, "content not found")
		return
	}

	var body struct {
		Status models.WatchStatus `json:"status"`
	}
	json.NewDecoder(r.Body).Decode(&body)
	if body.Status == "" {
		body.Status = models.StatusToWatch
	}

	list := m.watchlists[u.user.ID]
	if list == nil {
		list = make(map[string]models.WatchlistItem)
		m.watchlists[u.user.ID] = list
	}
	existing, exists := list[id]
	if r.Method == http.MethodPatch && !exists {
		writeError(w, http.StatusNotFound, "not in watchlist")
		return
	}
	if r.Method == http.MethodPost && exists {
		writeError(w, http.StatusBadRequest, "already in watchlist")
		return
	}

	item := models.WatchlistItem{ContentID: id, Status: body.Status, Content: &c, AddedAt: existing.AddedAt}
	if item.AddedAt.IsZero() {
		item.AddedAt = time.Now().UTC()
	}
	list[id] = item
	writeEnvelope(w, http.StatusOK, item)
}

func (m *MockBackend) removeWatchlist(w http.ResponseWriter, r *http.Request) {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.userFor(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	id := chi.URLParam(r, "id")
	if _, ok := m.watchlists[u.user.ID][id]; !ok {
		writeError(w, http.StatusNotFound, "not in watchlist")
		return
	}
	delete(m.watchlists[u.user.ID], id)
	writeEnvelope(w, http.StatusOK, nil)
}

func (m *MockBackend) login(w http.ResponseWriter, r *http.Request) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var creds models.Credentials
	json.NewDecoder(r.Body).Decode(&creds)
	for _, u := range m.users {
		if u.user.Email == creds.Email && u.password == creds.Password {
			if !u.user.Verified {
				writeError(w, http.StatusForbidden, "email not verified")
				return
			}
			user := u.user
			writeEnvelope(w, http.StatusOK, models.AuthResult{Token: u.token, User: &user})
			return
		}
	}
	writeError(w, http.StatusUnauthorized, "invalid email or password")
}

func (m *MockBackend) register(w http.ResponseWriter, r *http.Request) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var creds models.Credentials
	json.NewDecoder(r.Body).Decode(&creds)
	for _, u := range m.users {
		if u.user.Email == creds.Email {
			writeEnvelope(w, http.StatusOK, nil, "email already registered")
			return
		}
	}
	_, user := m.addUserLocked(creds.Email, creds.Password, creds.Name, false)
	writeEnvelope(w, http.StatusCreated, models.AuthResult{User: &user})
}

func (m *MockBackend) verifyEmail(w http.ResponseWriter, r *http.Request) {
	m.mu.Lock()
	defer m.mu.Unlock()

	userToken, ok := m.verify[r.URL.Query().Get("token")]
	if !ok {
		writeEnvelope(w, http.StatusBadRequest, nil, "Invalid or expired verification token")
		return
	}
	delete(m.verify, r.URL.Query().Get("token"))

	u := m.users[userToken]
	u.user.Verified = true
	user := u.user
	writeEnvelope(w, http.StatusOK, models.AuthResult{Token: u.token, User: &user})
}

func (m *MockBackend) oauth(w http.ResponseWriter, r *http.Request) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var body struct {
		Provider string `json:"provider"`
		Code     string `json:"code"`
	}
	json.NewDecoder(r.Body).Decode(&body)
	if body.Code != "good-code" {
		writeError(w, http.StatusUnauthorized, "invalid authorization code")
		return
	}
	token, user := m.addUserLocked(body.Provider+"@oauth.example.com", "", "OAuth User", true)
	writeEnvelope(w, http.StatusOK, models.AuthResult{Token: token, User: &user})
}

func (m *MockBackend) me(w http.ResponseWriter, r *http.Request) {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.userFor(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	writeEnvelope(w, http.StatusOK, u.user)
}

func (m *MockBackend) updateProfile(w http.ResponseWriter, r *http.Request) {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.userFor(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var update models.ProfileUpdate
	json.NewDecoder(r.Body).Decode(&update)
	if update.Name != nil {
		u.user.Name = *update.Name
	}
	if update.AvatarURL != nil {
		u.user.AvatarURL = *update.AvatarURL
	}
	writeEnvelope(w, http.StatusOK, u.user)
}

func writeRaw(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeEnvelope writes {success, data}. A message marks the response as a failure.
func writeEnvelope(w http.ResponseWriter, status int, data any, message ...string) {
	body := map[string]any{"success": len(message) == 0, "data": data}
	if len(message) > 0 {
		body["message"] = message[0]
	}
	writeRaw(w, status, body)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeRaw(w, status, map[string]string{"message": message})
}

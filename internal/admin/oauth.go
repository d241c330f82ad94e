package admin

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/apestel/hardwire/internal/hwerr"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

// pendingAuth is one in-flight OIDC login attempt, keyed by the state
// parameter. Entries are TTL'd at 10 minutes per the spec's process-
// local, mutex-protected pending_auths map.
type pendingAuth struct {
	nonce        string
	pkceVerifier string
	createdAt    time.Time
}

const pendingAuthTTL = 10 * time.Minute

// oauthStore is the mutex-protected pending_auths map.
type oauthStore struct {
	mu      sync.Mutex
	entries map[string]pendingAuth
}

func newOAuthStore() *oauthStore {
	return &oauthStore{entries: make(map[string]pendingAuth)}
}

func (s *oauthStore) put(state string, p pendingAuth) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.evictLocked()
	s.entries[state] = p
}

func (s *oauthStore) take(state string) (pendingAuth, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.evictLocked()
	p, ok := s.entries[state]
	if ok {
		delete(s.entries, state)
	}
	return p, ok
}

func (s *oauthStore) evictLocked() {
	now := time.Now()
	for k, v := range s.entries {
		if now.Sub(v.createdAt) > pendingAuthTTL {
			delete(s.entries, k)
		}
	}
}

// googleUserInfo is the subset of Google's userinfo endpoint response
// consumed to establish admin identity.
type googleUserInfo struct {
	Sub   string `json:"sub"`
	Email string `json:"email"`
}

func randomString(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

func pkceChallenge(verifier string) string {
	sum := sha256.Sum256([]byte(verifier))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}

// handleGoogleLogin starts the OIDC Authorization Code + PKCE flow.
func (s *Server) handleGoogleLogin(w http.ResponseWriter, r *http.Request) {
	state, err := randomString(24)
	if err != nil {
		hwerr.WriteJSON(w, hwerr.Wrap(hwerr.KindInternal, "generate state", err))
		return
	}
	nonce, err := randomString(24)
	if err != nil {
		hwerr.WriteJSON(w, hwerr.Wrap(hwerr.KindInternal, "generate nonce", err))
		return
	}
	verifier, err := randomString(32)
	if err != nil {
		hwerr.WriteJSON(w, hwerr.Wrap(hwerr.KindInternal, "generate pkce verifier", err))
		return
	}

	s.oauth.put(state, pendingAuth{nonce: nonce, pkceVerifier: verifier, createdAt: time.Now()})

	challenge := pkceChallenge(verifier)
	url := s.oauthConfig.AuthCodeURL(state,
		oauth2.SetAuthURLParam("code_challenge", challenge),
		oauth2.SetAuthURLParam("code_challenge_method", "S256"),
		oauth2.SetAuthURLParam("nonce", nonce),
	)

	http.Redirect(w, r, url, http.StatusFound)
}

// handleGoogleCallback completes the flow: exchanges the code, fetches
// the userinfo, resolves or rejects the admin row, and mints a bearer
// token.
func (s *Server) handleGoogleCallback(w http.ResponseWriter, r *http.Request) {
	state := r.URL.Query().Get("state")
	code := r.URL.Query().Get("code")
	if state == "" || code == "" {
		hwerr.WriteJSON(w, hwerr.New(hwerr.KindValidation, "missing state or code"))
		return
	}

	pending, ok := s.oauth.take(state)
	if !ok {
		hwerr.WriteJSON(w, hwerr.New(hwerr.KindAuthInvalid, "unknown or expired login attempt"))
		return
	}

	ctx := r.Context()
	token, err := s.oauthConfig.Exchange(ctx, code,
		oauth2.SetAuthURLParam("code_verifier", pending.pkceVerifier))
	if err != nil {
		hwerr.WriteJSON(w, hwerr.Wrap(hwerr.KindAuthInvalid, "token exchange failed", err))
		return
	}

	info, err := s.fetchGoogleUserInfo(ctx, token)
	if err != nil {
		hwerr.WriteJSON(w, hwerr.Wrap(hwerr.KindAuthInvalid, "fetch userinfo failed", err))
		return
	}

	user, err := s.store.AdminUserByGoogleID(info.Sub)
	if err != nil {
		hwerr.WriteJSON(w, err)
		return
	}

	bearer, err := s.tokens.Issue(user.ID, user.Email)
	if err != nil {
		hwerr.WriteJSON(w, hwerr.Wrap(hwerr.KindInternal, "issue token", err))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"token": bearer})
}

func (s *Server) fetchGoogleUserInfo(ctx context.Context, token *oauth2.Token) (*googleUserInfo, error) {
	client := s.oauthConfig.Client(ctx, token)
	resp, err := client.Get("https://www.googleapis.com/oauth2/v3/userinfo")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var info googleUserInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, err
	}
	return &info, nil
}

// newGoogleOAuthConfig builds the oauth2 client config for Google's
// OIDC endpoints.
func newGoogleOAuthConfig(clientID, clientSecret, redirectURL string) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURL:  redirectURL,
		Scopes:       []string{"openid", "email", "profile"},
		Endpoint:     google.Endpoint,
	}
}

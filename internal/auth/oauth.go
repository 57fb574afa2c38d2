package auth

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/oauth2"

	"github.com/om-08/level-up-tasks/internal/config"
)

var ErrBadOAuthState = errors.New("invalid oauth state")

// OAuth runs the authorization-code flow against a single configured
// provider. The state parameter is a short-lived signed token so the
// callback can reject forged redirects without server-side storage.
type OAuth struct {
	service  *Service
	provider string
	conf     *oauth2.Config
	userInfo string
	secret   []byte
	stateTTL time.Duration
}

func NewOAuth(service *Service, cfg config.OAuthConfig) *OAuth {
	if cfg.ClientID == "" {
		return nil
	}
	return &OAuth{
		service:  service,
		provider: cfg.Provider,
		conf: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       []string{"email"},
			Endpoint: oauth2.Endpoint{
				AuthURL:  cfg.AuthURL,
				TokenURL: cfg.TokenURL,
			},
		},
		userInfo: cfg.UserInfoURL,
		secret:   []byte(cfg.StateSecret),
		stateTTL: 10 * time.Minute,
	}
}

func (o *OAuth) newState(now time.Time) (string, error) {
	claims := jwt.RegisteredClaims{
		Issuer:    "levelup",
		Subject:   "oauth-state",
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(o.stateTTL)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(o.secret)
}

func (o *OAuth) verifyState(state string, now time.Time) error {
	tok, err := jwt.ParseWithClaims(state, &jwt.RegisteredClaims{}, func(t *jwt.Token) (any, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return o.secret, nil
	}, jwt.WithTimeFunc(func() time.Time { return now }))
	if err != nil || !tok.Valid {
		return ErrBadOAuthState
	}
	return nil
}

// Start redirects the browser to the provider's consent page.
func (o *OAuth) Start(w http.ResponseWriter, r *http.Request) {
	state, err := o.newState(time.Now())
	if err != nil {
		http.Error(w, "could not start sign-in", http.StatusInternalServerError)
		return
	}
	http.Redirect(w, r, o.conf.AuthCodeURL(state), http.StatusFound)
}

// Callback lands on /auth/callback: verify state, trade the code for a
// token, ask the provider for the account email, open a local session.
// Provider failures redirect back to /login; they never corrupt local state.
func (o *OAuth) Callback(w http.ResponseWriter, r *http.Request) {
	now := time.Now()

	if err := o.verifyState(r.URL.Query().Get("state"), now); err != nil {
		o.service.logger.Printf("[auth] oauth state rejected: %v", err)
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}

	code := r.URL.Query().Get("code")
	if code == "" {
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}

	tok, err := o.conf.Exchange(r.Context(), code)
	if err != nil {
		o.service.logger.Printf("[auth] oauth exchange failed: %v", err)
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}

	email, err := o.fetchEmail(r, tok)
	if err != nil {
		o.service.logger.Printf("[auth] oauth userinfo failed: %v", err)
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}

	u, sessionToken, exp, err := o.service.SignInOAuth(email, o.provider, now)
	if err != nil {
		o.service.logger.Printf("[auth] oauth sign-in failed for %s: %v", email, err)
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}

	o.service.SetSessionCookie(w, r, sessionToken, exp)
	o.service.logger.Printf("[auth] oauth sign-in ok user=%s provider=%s", u.ID, o.provider)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (o *OAuth) fetchEmail(r *http.Request, tok *oauth2.Token) (string, error) {
	client := o.conf.Client(r.Context(), tok)
	resp, err := client.Get(o.userInfo)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("userinfo status %d", resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", err
	}
	var info struct {
		Email string `json:"email"`
	}
	if err := json.Unmarshal(body, &info); err != nil {
		return "", err
	}
	if info.Email == "" {
		return "", errors.New("provider returned no email")
	}
	return info.Email, nil
}

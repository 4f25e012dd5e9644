package authgate

import (
	"net/http"
	"time"
)

// SessionCookie builds the HttpOnly session cookie carrying an access token.
// The engine only constructs the value; the boundary writes the header.
func (e *Engine) SessionCookie(tokenStr string) *http.Cookie {
	cfg := e.config.Cookie
	return &http.Cookie{
		Name:     cfg.Name,
		Value:    tokenStr,
		Path:     cfg.Path,
		Domain:   cfg.Domain,
		MaxAge:   int(cfg.MaxAge / time.Second),
		Secure:   cfg.Secure,
		HttpOnly: true,
		SameSite: cfg.SameSite,
	}
}

// ClearSessionCookie builds the expired twin of [Engine.SessionCookie], used
// on logout.
func (e *Engine) ClearSessionCookie() *http.Cookie {
	cfg := e.config.Cookie
	return &http.Cookie{
		Name:     cfg.Name,
		Value:    "",
		Path:     cfg.Path,
		Domain:   cfg.Domain,
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
		Secure:   cfg.Secure,
		HttpOnly: true,
		SameSite: cfg.SameSite,
	}
}

package security

import (
	"net/http"
	"time"
)

// SiteAccessCookie holds the signed site access token
const SiteAccessCookie = "site_access"

// IsSecureRequest determines if the request is over HTTPS
// Checks TLS connection, X-Forwarded-Proto header (for reverse proxies), and URL scheme
func IsSecureRequest(r *http.Request) bool {
	if r.TLS != nil {
		return true
	}
	if proto := r.Header.Get("X-Forwarded-Proto"); proto == "https" {
		return true
	}
	return r.URL.Scheme == "https"
}

// CreateAccessCookie wraps a site access token in an HttpOnly cookie.
// The Secure flag follows the request scheme.
func CreateAccessCookie(r *http.Request, token string, expires time.Time) *http.Cookie {
	return &http.Cookie{
		Name:     SiteAccessCookie,
		Value:    token,
		Path:     "/",
		Expires:  expires,
		HttpOnly: true,
		Secure:   IsSecureRequest(r),
		SameSite: http.SameSiteLaxMode,
	}
}

// DeleteAccessCookie expires the site access cookie
func DeleteAccessCookie(r *http.Request) *http.Cookie {
	return &http.Cookie{
		Name:     SiteAccessCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   IsSecureRequest(r),
		SameSite: http.SameSiteLaxMode,
	}
}

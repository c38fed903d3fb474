package handlers

import (
	"net/http"

	"impactfamilies/internal/security"
)

// Login exchanges the site password for the access cookie. The CSRF token
// for later API writes is returned in the body.
func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	session, err := h.services.Auth.Login(req.Password)
	if err != nil {
		h.errorResponse(w, r, err)
		return
	}

	http.SetCookie(w, security.CreateAccessCookie(r, session.Token, session.ExpiresAt))
	h.writeJSON(w, r, http.StatusOK, session)
}

func (h *Handlers) Logout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, security.DeleteAccessCookie(r))
	h.writeJSON(w, r, http.StatusOK, envelope{"logged_out": true})
}

func (h *Handlers) HealthCheck(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, r, http.StatusOK, envelope{
		"status": "available",
		"system_info": map[string]string{
			"environment": h.env,
		},
	})
}

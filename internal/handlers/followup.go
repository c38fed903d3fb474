package handlers

import "net/http"

// GetFollowUp serves the page reached from the WhatsApp link, without site access
func (h *Handlers) GetFollowUp(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		h.errorResponse(w, r, err)
		return
	}

	member, err := h.services.FollowUp.Get(r.Context(), id)
	if err != nil {
		h.errorResponse(w, r, err)
		return
	}
	h.writeJSON(w, r, http.StatusOK, member)
}

func (h *Handlers) UpdateFollowUp(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		h.errorResponse(w, r, err)
		return
	}

	var req followUpRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	member, err := h.services.FollowUp.Update(r.Context(), id, req.IsContacted, req.LeaderNotes)
	if err != nil {
		h.errorResponse(w, r, err)
		return
	}
	h.writeJSON(w, r, http.StatusOK, member)
}

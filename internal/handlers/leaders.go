package handlers

import "net/http"

func (h *Handlers) ListLeaders(w http.ResponseWriter, r *http.Request) {
	leaders, err := h.services.Leaders.List(r.Context())
	if err != nil {
		h.errorResponse(w, r, err)
		return
	}
	h.writeJSON(w, r, http.StatusOK, leaders)
}

func (h *Handlers) CreateLeader(w http.ResponseWriter, r *http.Request) {
	var req leaderRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	leader, err := h.services.Leaders.Create(r.Context(), req.toInput())
	if err != nil {
		h.errorResponse(w, r, err)
		return
	}
	h.writeJSON(w, r, http.StatusCreated, leader)
}

func (h *Handlers) UpdateLeader(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		h.errorResponse(w, r, err)
		return
	}

	var req leaderRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	leader, err := h.services.Leaders.Update(r.Context(), id, req.toInput())
	if err != nil {
		h.errorResponse(w, r, err)
		return
	}
	h.writeJSON(w, r, http.StatusOK, leader)
}

func (h *Handlers) DeleteLeader(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		h.errorResponse(w, r, err)
		return
	}

	if err := h.services.Leaders.Delete(r.Context(), id); err != nil {
		h.errorResponse(w, r, err)
		return
	}
	h.writeJSON(w, r, http.StatusOK, envelope{"id": id})
}

package handlers

import (
	"net/http"

	"impactfamilies/internal/service"
)

func (h *Handlers) ListMembers(w http.ResponseWriter, r *http.Request) {
	filter, err := memberFilterFromQuery(r)
	if err != nil {
		h.errorResponse(w, r, err)
		return
	}

	page, err := h.services.Members.List(r.Context(), filter)
	if err != nil {
		h.errorResponse(w, r, err)
		return
	}
	h.writeJSON(w, r, http.StatusOK, page)
}

func memberFilterFromQuery(r *http.Request) (service.MemberFilter, error) {
	query := r.URL.Query()
	filter := service.MemberFilter{
		Query:  query.Get("query"),
		Gender: query.Get("gender"),
	}

	var err error
	if filter.Page, err = queryInt(r, "page"); err != nil {
		return filter, err
	}
	if filter.PageSize, err = queryInt(r, "page_size"); err != nil {
		return filter, err
	}
	if filter.StartDate, err = queryDate(r, "start_date"); err != nil {
		return filter, err
	}
	if filter.EndDate, err = queryDate(r, "end_date"); err != nil {
		return filter, err
	}
	return filter, nil
}

func (h *Handlers) AvailableMembers(w http.ResponseWriter, r *http.Request) {
	members, err := h.services.Members.Available(r.Context())
	if err != nil {
		h.errorResponse(w, r, err)
		return
	}
	h.writeJSON(w, r, http.StatusOK, members)
}

func (h *Handlers) CreateMember(w http.ResponseWriter, r *http.Request) {
	var req memberRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	member, err := h.services.Members.Register(r.Context(), req.toInput())
	if err != nil {
		h.errorResponse(w, r, err)
		return
	}
	h.writeJSON(w, r, http.StatusCreated, member)
}

func (h *Handlers) GetMember(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		h.errorResponse(w, r, err)
		return
	}

	member, err := h.services.Members.Get(r.Context(), id)
	if err != nil {
		h.errorResponse(w, r, err)
		return
	}
	h.writeJSON(w, r, http.StatusOK, member)
}

func (h *Handlers) UpdateMember(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		h.errorResponse(w, r, err)
		return
	}

	var req memberRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	member, err := h.services.Members.Update(r.Context(), id, req.toInput())
	if err != nil {
		h.errorResponse(w, r, err)
		return
	}
	h.writeJSON(w, r, http.StatusOK, member)
}

func (h *Handlers) DeleteMember(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		h.errorResponse(w, r, err)
		return
	}

	if err := h.services.Members.Delete(r.Context(), id); err != nil {
		h.errorResponse(w, r, err)
		return
	}
	h.writeJSON(w, r, http.StatusOK, envelope{"id": id})
}

// ClosestFamilies ranks geocoded families by distance from the member
func (h *Handlers) ClosestFamilies(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		h.errorResponse(w, r, err)
		return
	}

	limit, err := queryInt(r, "limit")
	if err != nil {
		h.errorResponse(w, r, err)
		return
	}
	if limit < 0 {
		h.errorResponse(w, r, &APIError{Status: http.StatusBadRequest, Message: "invalid limit: must not be negative"})
		return
	}

	result, err := h.services.Assignment.FindClosestFamilies(r.Context(), id, limit)
	if err != nil {
		h.errorResponse(w, r, err)
		return
	}
	h.writeJSON(w, r, http.StatusOK, result)
}

func (h *Handlers) RemoveMemberFromFamily(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		h.errorResponse(w, r, err)
		return
	}

	result := h.services.Assignment.RemoveMemberFromFamily(r.Context(), id)
	h.writeAssignmentResult(w, r, result)
}

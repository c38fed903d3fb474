package handlers

import (
	"net/http"

	"impactfamilies/internal/service"
)

func (h *Handlers) ListFamilies(w http.ResponseWriter, r *http.Request) {
	families, err := h.services.Families.List(r.Context())
	if err != nil {
		h.errorResponse(w, r, err)
		return
	}
	h.writeJSON(w, r, http.StatusOK, families)
}

func (h *Handlers) CreateFamily(w http.ResponseWriter, r *http.Request) {
	var req familyRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	family, err := h.services.Families.Create(r.Context(), req.toInput())
	if err != nil {
		h.errorResponse(w, r, err)
		return
	}
	h.writeJSON(w, r, http.StatusCreated, family)
}

// GetFamily returns the family with its leaders, its members and the
// members still available for assignment
func (h *Handlers) GetFamily(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		h.errorResponse(w, r, err)
		return
	}

	overview, err := h.services.Families.GetDetails(r.Context(), id)
	if err != nil {
		h.errorResponse(w, r, err)
		return
	}
	h.writeJSON(w, r, http.StatusOK, overview)
}

func (h *Handlers) UpdateFamily(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		h.errorResponse(w, r, err)
		return
	}

	var req familyRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	family, err := h.services.Families.Update(r.Context(), id, req.toInput())
	if err != nil {
		h.errorResponse(w, r, err)
		return
	}
	h.writeJSON(w, r, http.StatusOK, family)
}

func (h *Handlers) DeleteFamily(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		h.errorResponse(w, r, err)
		return
	}

	if err := h.services.Families.Delete(r.Context(), id); err != nil {
		h.errorResponse(w, r, err)
		return
	}
	h.writeJSON(w, r, http.StatusOK, envelope{"id": id})
}

func (h *Handlers) AssignMember(w http.ResponseWriter, r *http.Request) {
	familyID, err := idParam(r, "id")
	if err != nil {
		h.errorResponse(w, r, err)
		return
	}

	var req assignMemberRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	result := h.services.Assignment.AssignMemberToFamily(r.Context(), familyID, req.MemberID)
	h.writeAssignmentResult(w, r, result)
}

// writeAssignmentResult sends the result as is; only the status reflects a failure
func (h *Handlers) writeAssignmentResult(w http.ResponseWriter, r *http.Request, result service.AssignmentResult) {
	status := http.StatusOK
	switch {
	case result.Success:
	case result.Error == service.MsgFamilyNotFound, result.Error == service.MsgMemberNotFound:
		status = http.StatusNotFound
	default:
		status = http.StatusInternalServerError
	}
	h.writeJSON(w, r, status, result)
}

package handlers

import (
	"net/http"

	"impactfamilies/internal/service"
)

func (h *Handlers) Statistics(w http.ResponseWriter, r *http.Request) {
	var (
		filter service.DemographicsFilter
		err    error
	)
	if filter.Year, err = queryInt(r, "year"); err != nil {
		h.errorResponse(w, r, err)
		return
	}
	if filter.Month, err = queryInt(r, "month"); err != nil {
		h.errorResponse(w, r, err)
		return
	}
	if filter.Day, err = queryInt(r, "day"); err != nil {
		h.errorResponse(w, r, err)
		return
	}

	report, err := h.services.Statistics.Report(r.Context(), filter)
	if err != nil {
		h.errorResponse(w, r, err)
		return
	}
	h.writeJSON(w, r, http.StatusOK, report)
}

package httpapi

import (
	"net/http"
	"strconv"

	"activitytracker-engine/internal/config"
	"activitytracker-engine/internal/store"
)

type ActivitiesHandler struct {
	Catalog Catalog
	Cfg     func() config.Config
}

// List serves catalog entries for the configured provider.
//
//	GET /activities?active=true&category=Aquatics&limit=100
func (h ActivitiesHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	opts := store.ListEntriesOpts{
		ProviderID: h.Cfg().Provider.ID,
		Category:   q.Get("category"),
	}

	if v := q.Get("active"); v != "" {
		active, err := strconv.ParseBool(v)
		if err != nil {
			WriteError(w, r, http.StatusBadRequest, "bad_request", "active must be true or false")
			return
		}
		opts.Active = &active
	}

	limit, err := queryInt(r, "limit", 0)
	if err != nil {
		WriteError(w, r, http.StatusBadRequest, "bad_request", "limit must be an integer")
		return
	}
	opts.Limit = limit

	entries, err := h.Catalog.ListEntries(r.Context(), opts)
	if err != nil {
		WriteError(w, r, http.StatusInternalServerError, "store", err.Error())
		return
	}
	writeJSON(w, entries)
}

package httpapi

import (
	"net/http"

	"activitytracker-engine/internal/observability"
)

// NewMux returns the raw mux; callers wrap it with Chain.
func NewMux(d Deps) *http.ServeMux {
	mux := http.NewServeMux()

	hh := HealthHandler{}
	mux.HandleFunc("/health", methodMux(map[string]http.HandlerFunc{
		http.MethodGet: hh.Health,
	}))

	// Catalog
	ah := ActivitiesHandler{Catalog: d.Catalog, Cfg: d.cfg}
	mux.HandleFunc("/activities", methodMux(map[string]http.HandlerFunc{
		http.MethodGet: ah.List,
	}))

	// Sync
	sh := SyncHandler{
		Catalog:   d.Catalog,
		Cfg:       d.cfg,
		Tracker:   d.Tracker,
		Hub:       d.Hub,
		NewRunner: d.NewRunner,
	}
	mux.HandleFunc("/sync/jobs", methodMux(map[string]http.HandlerFunc{
		http.MethodGet: sh.Jobs,
	}))
	mux.HandleFunc("/sync/status", methodMux(map[string]http.HandlerFunc{
		http.MethodGet: sh.Status,
	}))
	mux.HandleFunc("/sync/run", methodMux(map[string]http.HandlerFunc{
		http.MethodPost: sh.Run,
	}))

	// Config
	ch := ConfigHandler{
		CfgVal:      d.CfgVal,
		UserCfgPath: d.UserCfgPath,
		LoadCfg:     d.LoadCfg,
	}
	mux.HandleFunc("/config", methodMux(map[string]http.HandlerFunc{
		http.MethodGet: ch.Get,
		http.MethodPut: ch.Put,
	}))
	mux.HandleFunc("/config/path", methodMux(map[string]http.HandlerFunc{
		http.MethodGet: ch.Path,
	}))
	mux.HandleFunc("/config/validate", methodMux(map[string]http.HandlerFunc{
		http.MethodGet: ch.Validate,
	}))

	// Secrets (use cfgVal, NOT a snapshot cfg)
	sech := SecretsHandler{CfgVal: d.CfgVal}
	mux.HandleFunc("/api/secrets/postgres", methodMux(map[string]http.HandlerFunc{
		http.MethodPost: sech.SetPostgresPassword,
	}))

	// SSE events
	eh := EventsHandler{Hub: d.Hub}
	mux.HandleFunc("/events", methodMux(map[string]http.HandlerFunc{
		http.MethodGet: eh.ServeSSE,
	}))

	metrics := d.Metrics
	if metrics == nil {
		metrics = observability.Handler()
	}
	mux.Handle("/metrics", metrics)

	return mux
}

package httpapi

import (
	"encoding/json"
	"net/http"
	"sync/atomic"

	"activitytracker-engine/internal/config"
	"activitytracker-engine/internal/secrets"
)

type SecretsHandler struct {
	CfgVal *atomic.Value // stores config.Config
}

type setPasswordReq struct {
	Password string `json:"password"`
}

// SetPostgresPassword stores the catalog database password in the OS
// keychain under the configured account.
func (h SecretsHandler) SetPostgresPassword(w http.ResponseWriter, r *http.Request) {
	var req setPasswordReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, r, http.StatusBadRequest, "invalid_json", "invalid json")
		return
	}

	cfg := h.CfgVal.Load().(config.Config)
	if err := secrets.SetPostgresPassword(cfg.KeyringAccount(), req.Password); err != nil {
		WriteError(w, r, http.StatusBadRequest, "keyring", "failed to store password: "+err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

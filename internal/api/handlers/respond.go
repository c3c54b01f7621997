package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/wonny/aegis-screener/internal/contracts"
)

// Helper functions

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{
		"error": message,
	})
}

// respondConfigError reports a ConfigurationError with its field
func respondConfigError(w http.ResponseWriter, err error) {
	var cfgErr contracts.ConfigurationError
	if errors.As(err, &cfgErr) {
		respondJSON(w, http.StatusBadRequest, map[string]string{
			"error": cfgErr.Message,
			"field": cfgErr.Field,
		})
		return
	}
	respondError(w, http.StatusBadRequest, err.Error())
}

package httpapi

import (
	"encoding/json"
	"net/http"
	"time"

	"voiceauth-server/pkg/language"
	"voiceauth-server/pkg/version"
)

type healthStatus struct {
	Status             string   `json:"status"`
	Version            string   `json:"version"`
	ModelLoaded        bool     `json:"model_loaded"`
	SupportedLanguages []string `json:"supported_languages"`
	Uptime             string   `json:"uptime"`
	Messaging          string   `json:"messaging,omitempty"`
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	status := healthStatus{
		Status:             "healthy",
		Version:            version.Version,
		ModelLoaded:        s.pipeline.Ready(),
		SupportedLanguages: language.Labels,
		Uptime:             time.Since(s.startTime).Round(time.Second).String(),
	}
	if !status.ModelLoaded {
		status.Status = "degraded"
	}
	if s.publisher != nil {
		if s.publisher.IsConnected() {
			status.Messaging = "connected"
		} else {
			status.Messaging = "disconnected"
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(status)
}

func (s *Server) livenessHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{"status": "alive"})
}

func (s *Server) readinessHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if !s.pipeline.Ready() {
		w.WriteHeader(http.StatusServiceUnavailable)
		json.NewEncoder(w).Encode(map[string]string{"status": "not ready"})
		return
	}
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{"status": "ready"})
}

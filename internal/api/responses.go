package api

import (
	"encoding/json"
	"net/http"
)

type envelope struct {
	Code int    `json:"code"`
	Text string `json:"text,omitempty"`
	Data any    `json:"data,omitempty"`
}

func (s *Server) sendJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(envelope{Code: status, Data: data}); err != nil {
		s.log.Error().Err(err).Msg("encode response")
	}
}

func (s *Server) sendError(w http.ResponseWriter, status int, text string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(envelope{Code: status, Text: text}); err != nil {
		s.log.Error().Err(err).Msg("encode error response")
	}
}

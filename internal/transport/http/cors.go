package http

import (
	"net/http"
	"slices"
)

// handleCORS はCORSヘッダーを設定
func (s *Server) handleCORS(w http.ResponseWriter, r *http.Request) {
	// CORS無効ならスキップ
	if len(s.config.CORSOrigins) == 0 {
		return
	}

	origin := r.Header.Get("Origin")
	if origin == "" || !slices.Contains(s.config.CORSOrigins, origin) {
		return
	}

	w.Header().Set("Access-Control-Allow-Origin", origin)
	w.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type, "+RequestIDHeader)
	w.Header().Set("Access-Control-Expose-Headers", RequestIDHeader)
	w.Header().Add("Vary", "Origin")
}

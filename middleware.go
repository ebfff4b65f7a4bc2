package main

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

func authMiddleware(token string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if token != "" {
			auth := r.Header.Get("Authorization")
			if auth != "Bearer "+token {
				jsonResp(w, 401, map[string]string{"error": "unauthorized"})
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type")
		if r.Method == "OPTIONS" {
			w.WriteHeader(204)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func jsonResp(w http.ResponseWriter, code int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("json encode", "err", err)
	}
}

// jsonOK writes the always-200 success shape. Callers inspect the body, not
// the status code.
func jsonOK(w http.ResponseWriter, data map[string]any) {
	if data == nil {
		data = map[string]any{}
	}
	if _, had := data["ok"]; !had {
		data["ok"] = true
	}
	jsonResp(w, 200, data)
}

// jsonErrBody renders a failure as an HTTP 200 with the error in the body —
// the facade's external contract.
func jsonErrBody(w http.ResponseWriter, err error) {
	jsonResp(w, 200, map[string]string{"error": err.Error()})
}

package response

import (
	"encoding/json"
	"net/http"
)

// Fields are merged into a success body next to "success": true.
type Fields map[string]any

type errorBody struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Code    string `json:"code"`
	Details any    `json:"details,omitempty"`
}

func OK(w http.ResponseWriter, fields Fields) {
	writeJSON(w, http.StatusOK, success(fields))
}

// Error writes {"success": false, "error": message, "code": code, "details": details}.
func Error(w http.ResponseWriter, status int, code, message string, details any) {
	writeJSON(w, status, errorBody{
		Success: false,
		Error:   message,
		Code:    code,
		Details: details,
	})
}

func success(fields Fields) map[string]any {
	body := make(map[string]any, len(fields)+1)
	for k, v := range fields {
		body[k] = v
	}
	body["success"] = true
	return body
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

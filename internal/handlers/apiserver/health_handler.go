package apiserver

import "net/http"

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// Health reports that the server is up.
func Health(w http.ResponseWriter, _ *http.Request) {
	writeJSONResponse(w, http.StatusOK, HealthResponse{Status: "ok", Message: "Server is running"})
}

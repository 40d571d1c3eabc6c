package handler

import (
	"encoding/json"
	"net/http"
)

type jsonResponse struct {
	status int
	body   any
}

func (j jsonResponse) Render(w http.ResponseWriter, r *http.Request) error {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(j.status)
	return json.NewEncoder(w).Encode(j.body)
}

// Raw renders v as the whole body with status 200. Use it for wire formats
// fixed by a protocol, such as OpenADR response objects.
func Raw(v any) Response {
	return jsonResponse{status: http.StatusOK, body: v}
}

package handler

import (
	"encoding/json"
	"errors"
	"net/http"
)

// ProblemContentType is the media type of RFC 7807 problem documents.
const ProblemContentType = "application/problem+json"

// ProblemDetails is an RFC 7807 problem document. Code carries the
// HTTPError key so that clients can branch without parsing Detail, and
// Message repeats Detail for clients that read the {code, message} shape.
type ProblemDetails struct {
	Type     string `json:"type"`
	Title    string `json:"title"`
	Status   int    `json:"status"`
	Detail   string `json:"detail,omitempty"`
	Instance string `json:"instance,omitempty"`
	Code     string `json:"code"`
	Message  string `json:"message,omitempty"`
}

type problemResponse struct {
	body ProblemDetails
}

func (p problemResponse) Render(w http.ResponseWriter, r *http.Request) error {
	body := p.body
	if body.Instance == "" && r != nil {
		body.Instance = r.URL.Path
	}
	w.Header().Set("Content-Type", ProblemContentType)
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(body.Status)
	return json.NewEncoder(w).Encode(body)
}

// Problem renders e as a problem document. An empty detail falls back to
// the status text.
//
//	return handler.Problem(ErrChannelConflict, "notifier channel already open for this client")
func Problem(e HTTPError, detail string) Response {
	title := http.StatusText(e.Code)
	if detail == "" {
		detail = title
	}
	return problemResponse{body: ProblemDetails{
		Type:    "about:blank",
		Title:   title,
		Status:  e.Code,
		Detail:  detail,
		Code:    e.Key,
		Message: detail,
	}}
}

// ProblemFrom maps any error to a problem document. Errors wrapping an
// HTTPError keep its status and key; anything else becomes a 500 whose
// detail does not leak the error text.
func ProblemFrom(err error) Response {
	var httpErr HTTPError
	if errors.As(err, &httpErr) {
		return Problem(httpErr, "")
	}
	return Problem(ErrInternalServerError, "")
}

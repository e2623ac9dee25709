package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/anibalssilva/tech-challenge-books-api/internal/model"
)

// writeJSON serializes v as JSON and writes it to the response with the given
// HTTP status code. The Content-Type header is set to application/json.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeDetail writes a hard error response with the standard detail envelope.
func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, model.ErrorResponse{Detail: detail})
}

// writeChallenge writes a hard auth error carrying the bearer retry
// challenge expected by token-based clients.
func writeChallenge(w http.ResponseWriter, status int, detail string) {
	w.Header().Set("WWW-Authenticate", "Bearer")
	writeDetail(w, status, detail)
}

// readJSON decodes the request body as JSON into v. The body is closed after
// decoding regardless of success or failure.
func readJSON(r *http.Request, v interface{}) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(v)
}

// queryString extracts a string query parameter.
func queryString(r *http.Request, key string) string {
	return r.URL.Query().Get(key)
}

// queryFloat extracts a float query parameter. The second return is false
// when the parameter is missing or unparseable.
func queryFloat(r *http.Request, key string) (float64, bool) {
	val := r.URL.Query().Get(key)
	if val == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(val, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

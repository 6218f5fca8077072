package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

// Problem type URIs returned by the inspection API. Anything without a more
// specific type uses about:blank, whose title is the status text.
const (
	TypeBlank        = "about:blank"
	TypeInvalidQuery = "/problems/invalid-query"
	TypeNotScraped   = "/problems/not-scraped"
)

// Problem is an RFC 7807 problem details body.
type Problem struct {
	Type     string `json:"type"`
	Title    string `json:"title"`
	Status   int    `json:"status"`
	Detail   string `json:"detail"`
	Instance string `json:"instance,omitempty"`
}

func (p *Problem) Error() string {
	return fmt.Sprintf("%d %s: %s", p.Status, p.Title, p.Detail)
}

// NewProblem builds a problem titled with the standard status text.
func NewProblem(status int, problemType, detail, instance string) *Problem {
	if problemType == "" {
		problemType = TypeBlank
	}
	return &Problem{
		Type:     problemType,
		Title:    http.StatusText(status),
		Status:   status,
		Detail:   detail,
		Instance: instance,
	}
}

func (p *Problem) Write(w http.ResponseWriter) error {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(p.Status)
	return json.NewEncoder(w).Encode(p)
}

func WriteInternalServerError(w http.ResponseWriter, err error, instance string) {
	NewProblem(http.StatusInternalServerError, TypeBlank, err.Error(), instance).Write(w)
}

// WriteInvalidQuery reports a malformed or missing query parameter.
func WriteInvalidQuery(w http.ResponseWriter, detail, instance string) {
	NewProblem(http.StatusBadRequest, TypeInvalidQuery, detail, instance).Write(w)
}

// WriteNotScraped reports a product URL without a stored detail record.
func WriteNotScraped(w http.ResponseWriter, productURL, instance string) {
	NewProblem(http.StatusNotFound, TypeNotScraped, fmt.Sprintf("No details stored for %s", productURL), instance).Write(w)
}

func WriteNotFound(w http.ResponseWriter, detail, instance string) {
	NewProblem(http.StatusNotFound, TypeBlank, detail, instance).Write(w)
}

func WriteMethodNotAllowed(w http.ResponseWriter, instance string, allowed ...string) {
	w.Header().Set("Allow", strings.Join(allowed, ", "))
	NewProblem(http.StatusMethodNotAllowed, TypeBlank,
		fmt.Sprintf("Only %s is supported.", strings.Join(allowed, ", ")), instance).Write(w)
}

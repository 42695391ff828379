package strapi

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrNotFound matches API errors with status 404.
var ErrNotFound = errors.New("strapi: not found")

// APIError is the decoded error envelope of a failed content API request.
type APIError struct {
	Status  int
	Name    string
	Message string
}

func (e *APIError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = http.StatusText(e.Status)
	}
	if e.Name != "" {
		return fmt.Sprintf("strapi: %s (%d): %s", e.Name, e.Status, msg)
	}
	return fmt.Sprintf("strapi: status %d: %s", e.Status, msg)
}

// Is lets errors.Is(err, ErrNotFound) match 404 responses.
func (e *APIError) Is(target error) bool {
	return target == ErrNotFound && e.Status == http.StatusNotFound
}

type errorEnvelope struct {
	Error struct {
		Status  int    `json:"status"`
		Name    string `json:"name"`
		Message string `json:"message"`
	} `json:"error"`
}

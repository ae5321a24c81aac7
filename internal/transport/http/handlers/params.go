package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// userNameParam reads the {userName} path segment chi matched.
func userNameParam(r *http.Request) string {
	return chi.URLParam(r, "userName")
}

// tokenIDParam reads the {tokenID} path segment chi matched.
func tokenIDParam(r *http.Request) string {
	return chi.URLParam(r, "tokenID")
}

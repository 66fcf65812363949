// Package common provides shared HTTP helpers for the API handlers.
package common

import (
	"fmt"
	"net/http"
	"net/url"
	"regexp"

	"github.com/go-chi/chi/v5"
)

var slugPattern = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9._-]*$`)

// GetSlugParam returns the decoded URL parameter paramName. Slugs start
// with a letter or digit and contain only letters, digits, dots, dashes
// and underscores.
func GetSlugParam(r *http.Request, paramName string) (string, error) {
	decoded, err := url.PathUnescape(chi.URLParam(r, paramName))
	if err != nil {
		return "", fmt.Errorf("invalid URL encoding in %s", paramName)
	}
	if decoded == "" {
		return "", fmt.Errorf("%s cannot be empty", paramName)
	}
	if !slugPattern.MatchString(decoded) {
		return "", fmt.Errorf("%s is not a valid slug: %q", paramName, decoded)
	}
	return decoded, nil
}

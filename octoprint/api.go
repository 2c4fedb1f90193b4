// Package octoprint is a small client for the OctoPrint REST API, covering
// just enough surface to push finished G-code at a printer and start the
// print.
package octoprint

import (
	"fmt"
	"net/http"
	"net/url"
)

// NewAPI builds an API handle for the OctoPrint instance at rawURL, e.g.
// "http://octopi.local".
func NewAPI(rawURL string, apiKey string) (*API, error) {
	if rawURL == "" {
		return &API{}, fmt.Errorf("octoprint: configure your OctoPrint URL with --octoprint-url")
	}
	if apiKey == "" {
		return &API{}, fmt.Errorf("octoprint: API key is empty, please check octoprint-key-cmd")
	}

	u, err := url.ParseRequestURI(rawURL)
	if err != nil {
		return nil, fmt.Errorf("octoprint: couldn't parse URL %s: %w", rawURL, err)
	}

	a := &API{
		BaseURI: u,
		apiKey:  apiKey,
	}
	a.Client = &http.Client{}

	return a, nil
}

type API struct {
	// Base URL of the OctoPrint instance, e.g. http://octopi.local
	BaseURI *url.URL

	// An HTTP client - you can substitute VCR or whatnot.
	Client *http.Client

	apiKey string
}

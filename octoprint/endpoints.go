package octoprint

import (
	"fmt"
	"net/url"
	"path"

	"github.com/google/go-querystring/query"
)

// https://docs.octoprint.org/en/master/api/version.html
func (a *API) versionEndpoint() (*url.URL, error) {
	return a.resolveEndpoint("/api/version")
}

// https://docs.octoprint.org/en/master/api/connection.html
func (a *API) connectionEndpoint() (*url.URL, error) {
	return a.resolveEndpoint("/api/connection")
}

// https://docs.octoprint.org/en/master/api/files.html#retrieve-files-from-specific-location
func (a *API) listFilesEndpoint(opts ListFilesQuery) (*url.URL, error) {
	ep, err := a.resolveEndpoint("/api/files/local")
	if err != nil {
		return nil, fmt.Errorf("octoprint: couldn't resolve endpoint: %w", err)
	}

	v, err := query.Values(opts)
	if err != nil {
		return nil, fmt.Errorf("octoprint: couldn't encode query params: %w", err)
	}
	ep.RawQuery = v.Encode()

	return ep, nil
}

// https://docs.octoprint.org/en/master/api/files.html#upload-file-or-create-folder
func (a *API) uploadEndpoint() (*url.URL, error) {
	return a.resolveEndpoint("/api/files/local")
}

// https://docs.octoprint.org/en/master/api/files.html#issue-a-file-command
func (a *API) fileCommandEndpoint(name string) (*url.URL, error) {
	if name == "" {
		return nil, fmt.Errorf("octoprint: please provide a filename for the file command")
	}
	return a.resolveEndpoint(path.Join("/api/files/local", name))
}

// Do a bit of error checking on endpoint format, and return it relative to the base URI.
func (a *API) resolveEndpoint(endpoint string) (*url.URL, error) {
	ref, err := url.Parse(endpoint)
	if err != nil {
		return nil, fmt.Errorf("octoprint: failed to parse endpoint ref: %w", err)
	}

	return a.BaseURI.ResolveReference(ref), nil
}

package octoprint

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
)

// ServerVersion reports the OctoPrint server version.
func (api *API) ServerVersion(ctx context.Context) (*Version, error) {
	ep, err := api.versionEndpoint()
	if err != nil {
		return nil, fmt.Errorf("octoprint: couldn't get version endpoint: %w", err)
	}

	body, err := api.get(ctx, ep)
	if err != nil {
		return nil, fmt.Errorf("octoprint: couldn't perform request: %w", err)
	}

	var version Version
	if err := json.Unmarshal(body, &version); err != nil {
		return nil, fmt.Errorf("octoprint: couldn't parse json response: %w", err)
	}

	return &version, nil
}

// ConnectionState returns the printer's current connection state, e.g.
// "Operational" or "Printing".
func (api *API) ConnectionState(ctx context.Context) (string, error) {
	ep, err := api.connectionEndpoint()
	if err != nil {
		return "", fmt.Errorf("octoprint: couldn't get connection endpoint: %w", err)
	}

	body, err := api.get(ctx, ep)
	if err != nil {
		return "", fmt.Errorf("octoprint: couldn't perform request: %w", err)
	}

	var conn Connection
	if err := json.Unmarshal(body, &conn); err != nil {
		return "", fmt.Errorf("octoprint: couldn't parse json response: %w", err)
	}

	return conn.Current.State, nil
}

// ListFiles lists the G-code files OctoPrint stores locally.
func (api *API) ListFiles(ctx context.Context, opts ListFilesQuery) (*FileList, error) {
	ep, err := api.listFilesEndpoint(opts)
	if err != nil {
		return nil, fmt.Errorf("octoprint: couldn't get files endpoint: %w", err)
	}

	body, err := api.get(ctx, ep)
	if err != nil {
		return nil, fmt.Errorf("octoprint: couldn't perform request: %w", err)
	}

	var list FileList
	if err := json.Unmarshal(body, &list); err != nil {
		return nil, fmt.Errorf("octoprint: couldn't parse json response: %w", err)
	}

	return &list, nil
}

// Upload pushes a local G-code file to OctoPrint's local storage and returns
// the name it was stored under.
func (api *API) Upload(ctx context.Context, gcodePath string) (string, error) {
	ep, err := api.uploadEndpoint()
	if err != nil {
		return "", fmt.Errorf("octoprint: couldn't get upload endpoint: %w", err)
	}

	f, err := os.Open(gcodePath)
	if err != nil {
		return "", fmt.Errorf("octoprint: couldn't open %s: %w", gcodePath, err)
	}
	defer f.Close()

	var buf bytes.Buffer
	form := multipart.NewWriter(&buf)
	part, err := form.CreateFormFile("file", filepath.Base(gcodePath))
	if err != nil {
		return "", fmt.Errorf("octoprint: couldn't build multipart form: %w", err)
	}
	if _, err := io.Copy(part, f); err != nil {
		return "", fmt.Errorf("octoprint: couldn't read %s: %w", gcodePath, err)
	}
	if err := form.Close(); err != nil {
		return "", fmt.Errorf("octoprint: couldn't finish multipart form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, ep.String(), &buf)
	if err != nil {
		return "", fmt.Errorf("octoprint: couldn't build upload request: %w", err)
	}
	req.Header.Set("Content-Type", form.FormDataContentType())

	body, err := api.do(req)
	if err != nil {
		return "", fmt.Errorf("octoprint: upload failed: %w", err)
	}

	var resp UploadResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("octoprint: couldn't parse upload response: %w", err)
	}
	if resp.Files.Local.Name == "" {
		return "", fmt.Errorf("octoprint: upload response did not name the stored file")
	}

	return resp.Files.Local.Name, nil
}

// StartPrint selects the named file on OctoPrint and starts printing it.
func (api *API) StartPrint(ctx context.Context, name string) error {
	ep, err := api.fileCommandEndpoint(name)
	if err != nil {
		return fmt.Errorf("octoprint: couldn't get file command endpoint: %w", err)
	}

	payload, err := json.Marshal(jobCommand{Command: "select", Print: true})
	if err != nil {
		return fmt.Errorf("octoprint: couldn't encode select command: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, ep.String(), bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("octoprint: couldn't build select request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	if _, err := api.do(req); err != nil {
		return fmt.Errorf("octoprint: couldn't start print of %s: %w", name, err)
	}

	return nil
}

func (api *API) get(ctx context.Context, ep *url.URL) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ep.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("octoprint: couldn't build request: %w", err)
	}
	return api.do(req)
}

func (api *API) do(req *http.Request) ([]byte, error) {
	req.Header.Set("X-Api-Key", api.apiKey)

	resp, err := api.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("octoprint: request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("octoprint: couldn't read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("octoprint: %s %s returned %s: %s",
			req.Method, req.URL.Path, resp.Status, body)
	}

	return body, nil
}

package octoprint

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"gopkg.in/dnaeon/go-vcr.v3/recorder"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

func jsonResponse(code int, body string) *http.Response {
	return &http.Response{
		StatusCode: code,
		Status:     http.StatusText(code),
		Header:     http.Header{"Content-Type": []string{"application/json"}},
		Body:       io.NopCloser(strings.NewReader(body)),
	}
}

func testAPI(t *testing.T, rt roundTripFunc) *API {
	t.Helper()
	api, err := NewAPI("http://octopi.local", "TESTKEY")
	if err != nil {
		t.Fatalf("new api: %v", err)
	}
	api.Client = &http.Client{Transport: rt}
	return api
}

func TestVersionAndStateReplayedFromCassette(t *testing.T) {
	r, err := recorder.NewWithOptions(&recorder.Options{
		CassetteName: "fixtures/octoprint",
		Mode:         recorder.ModeReplayOnly,
	})
	if err != nil {
		t.Fatalf("set up go-vcr: %v", err)
	}
	defer r.Stop()

	api, err := NewAPI("http://octopi.local", "TESTKEY")
	if err != nil {
		t.Fatalf("new api: %v", err)
	}
	api.Client = r.GetDefaultClient()

	version, err := api.ServerVersion(context.Background())
	if err != nil {
		t.Fatalf("server version: %v", err)
	}
	if version.Server != "1.9.3" {
		t.Errorf("unexpected server version: %+v", version)
	}

	state, err := api.ConnectionState(context.Background())
	if err != nil {
		t.Fatalf("connection state: %v", err)
	}
	if state != StateOperational {
		t.Errorf("expected Operational, got %q", state)
	}
}

func TestRequestsCarryAPIKey(t *testing.T) {
	api := testAPI(t, func(req *http.Request) (*http.Response, error) {
		if got := req.Header.Get("X-Api-Key"); got != "TESTKEY" {
			t.Errorf("expected API key header, got %q", got)
		}
		return jsonResponse(200, `{"api":"0.1","server":"1.9.3","text":"OctoPrint 1.9.3"}`), nil
	})

	if _, err := api.ServerVersion(context.Background()); err != nil {
		t.Fatalf("server version: %v", err)
	}
}

func TestListFilesEncodesQuery(t *testing.T) {
	api := testAPI(t, func(req *http.Request) (*http.Response, error) {
		if req.URL.Path != "/api/files/local" {
			t.Errorf("unexpected path: %s", req.URL.Path)
		}
		if req.URL.Query().Get("recursive") != "true" {
			t.Errorf("expected recursive=true, got %s", req.URL.RawQuery)
		}
		return jsonResponse(200, `{"files":[{"name":"clip.gcode","origin":"local","size":120}]}`), nil
	})

	list, err := api.ListFiles(context.Background(), ListFilesQuery{Recursive: true})
	if err != nil {
		t.Fatalf("list files: %v", err)
	}
	if len(list.Files) != 1 || list.Files[0].Name != "clip.gcode" {
		t.Errorf("unexpected file list: %+v", list)
	}
}

func TestUploadPostsMultipartGCode(t *testing.T) {
	dir := t.TempDir()
	gcode := filepath.Join(dir, "clip.gcode")
	if err := os.WriteFile(gcode, []byte("G1 X0\n"), 0644); err != nil {
		t.Fatalf("write gcode: %v", err)
	}

	api := testAPI(t, func(req *http.Request) (*http.Response, error) {
		if req.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", req.Method)
		}
		if !strings.HasPrefix(req.Header.Get("Content-Type"), "multipart/form-data") {
			t.Errorf("expected multipart upload, got %s", req.Header.Get("Content-Type"))
		}
		var buf bytes.Buffer
		if _, err := io.Copy(&buf, req.Body); err != nil {
			t.Fatalf("read upload body: %v", err)
		}
		if !strings.Contains(buf.String(), "G1 X0") {
			t.Error("upload body should contain the G-code")
		}
		return jsonResponse(201, `{"done":true,"files":{"local":{"name":"clip.gcode","origin":"local"}}}`), nil
	})

	name, err := api.Upload(context.Background(), gcode)
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	if name != "clip.gcode" {
		t.Errorf("unexpected stored name: %q", name)
	}
}

func TestStartPrintIssuesSelectCommand(t *testing.T) {
	api := testAPI(t, func(req *http.Request) (*http.Response, error) {
		if req.URL.Path != "/api/files/local/clip.gcode" {
			t.Errorf("unexpected path: %s", req.URL.Path)
		}
		body, _ := io.ReadAll(req.Body)
		if !strings.Contains(string(body), `"command":"select"`) || !strings.Contains(string(body), `"print":true`) {
			t.Errorf("unexpected command body: %s", body)
		}
		return jsonResponse(204, ""), nil
	})

	if err := api.StartPrint(context.Background(), "clip.gcode"); err != nil {
		t.Fatalf("start print: %v", err)
	}
}

func TestErrorStatusSurfacesBody(t *testing.T) {
	api := testAPI(t, func(req *http.Request) (*http.Response, error) {
		return jsonResponse(409, `{"error":"Printer is not operational"}`), nil
	})

	err := api.StartPrint(context.Background(), "clip.gcode")
	if err == nil {
		t.Fatal("expected error for 409 response")
	}
	if !strings.Contains(err.Error(), "not operational") {
		t.Errorf("error should carry the server message: %v", err)
	}
}

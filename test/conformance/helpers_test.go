//go:build conformance

package conformance

import (
	"bytes"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"testing"
)

// apiURL builds a full URL for the given API path, e.g. "/images".
func apiURL(path string) string {
	return strings.TrimRight(baseURL, "/") + path
}

// doRequest performs an HTTP request and returns the response.
func doRequest(t *testing.T, req *http.Request) *http.Response {
	t.Helper()
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	return resp
}

// decode reads resp as a JSON object.
func decode(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("unmarshal JSON: %v\nbody: %s", err, string(data))
	}
	return raw
}

// doJSON performs an authenticated GET and returns the decoded JSON.
func doJSON(t *testing.T, url string) (int, map[string]any) {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		t.Fatalf("create request: %v", err)
	}
	req.Header.Set("Authorization", "Bearer "+authToken)
	resp := doRequest(t, req)
	return resp.StatusCode, decode(t, resp)
}

// doUpload posts a PNG to /images and returns the decoded JSON.
func doUpload(t *testing.T, content []byte) (int, map[string]any) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	fw, err := w.CreateFormFile("image", "conformance.png")
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if _, err := fw.Write(content); err != nil {
		t.Fatalf("write content: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}

	req, err := http.NewRequest(http.MethodPost, apiURL("/images"), &buf)
	if err != nil {
		t.Fatalf("create request: %v", err)
	}
	req.Header.Set("Authorization", "Bearer "+authToken)
	req.Header.Set("Content-Type", w.FormDataContentType())
	resp := doRequest(t, req)
	return resp.StatusCode, decode(t, resp)
}

// pngBytes returns a solid w x h PNG.
func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := range h {
		for x := range w {
			img.Set(x, y, color.RGBA{G: 180, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

// assertPageShape validates the paginated list body.
func assertPageShape(t *testing.T, raw map[string]any) {
	t.Helper()
	if _, ok := raw["count"].(float64); !ok {
		t.Errorf("'count' should be a number, got %T", raw["count"])
	}
	for _, key := range []string{"next", "previous"} {
		v, ok := raw[key]
		if !ok {
			t.Errorf("page missing %q", key)
			continue
		}
		if _, isString := v.(string); v != nil && !isString {
			t.Errorf("%q should be string or null, got %T", key, v)
		}
	}
	if _, ok := raw["results"].([]any); !ok {
		t.Errorf("'results' should be an array, got %T", raw["results"])
	}
}

// assertDetail checks an error body of the form {"detail": "..."}.
func assertDetail(t *testing.T, raw map[string]any) {
	t.Helper()
	if d, ok := raw["detail"].(string); !ok || d == "" {
		t.Errorf("error body should carry a non-empty 'detail', got %v", raw)
	}
}

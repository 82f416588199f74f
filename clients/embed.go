package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
)

// TimeWindow is one embedding request interval, in seconds.
type TimeWindow struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

type embedResp struct {
	Embeddings [][]float64 `json:"embeddings"`
}

// Embed uploads the audio plus the window list to the embedding service and
// returns one voice vector per window, in request order. Windows with too
// little speech come back as all-zero vectors.
func (h *HTTP) Embed(ctx context.Context, url, wavPath string, windows []TimeWindow) ([][]float64, error) {
	var b bytes.Buffer
	w := multipart.NewWriter(&b)

	fw, err := w.CreateFormFile("file", filepath.Base(wavPath))
	if err != nil {
		return nil, err
	}
	fd, err := os.Open(wavPath)
	if err != nil {
		return nil, err
	}
	defer fd.Close()

	if _, err = io.Copy(fw, fd); err != nil {
		return nil, err
	}

	winJSON, err := json.Marshal(windows)
	if err != nil {
		return nil, err
	}
	if err = w.WriteField("windows", string(winJSON)); err != nil {
		return nil, err
	}
	if err = w.Close(); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url+"/embed", &b)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", w.FormDataContentType())

	resp, err := h.c.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("embed %s: %s", resp.Status, string(body))
	}

	var out embedResp
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("embed decode: %w", err)
	}
	if len(out.Embeddings) != len(windows) {
		return nil, fmt.Errorf("embed: got %d vectors for %d windows", len(out.Embeddings), len(windows))
	}
	return out.Embeddings, nil
}

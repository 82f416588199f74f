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
	"strconv"
)

// Scene is one detected shot as reported by the detector service.
type Scene struct {
	StartTime float64 `json:"start_time"`
	EndTime   float64 `json:"end_time"`
}

type shotResp struct {
	Scenes []Scene `json:"scenes"`
}

// DetectShots uploads the video to the shot-boundary service and returns the
// cut timestamps: each scene's end time, except the last scene which ends at
// the video's end and is not a cut.
func (h *HTTP) DetectShots(ctx context.Context, url, videoPath string, threshold float64) ([]float64, error) {
	var b bytes.Buffer
	w := multipart.NewWriter(&b)

	fw, err := w.CreateFormFile("file", filepath.Base(videoPath))
	if err != nil {
		return nil, err
	}
	fd, err := os.Open(videoPath)
	if err != nil {
		return nil, err
	}
	defer fd.Close()

	if _, err = io.Copy(fw, fd); err != nil {
		return nil, err
	}
	if err = w.WriteField("threshold", strconv.FormatFloat(threshold, 'f', -1, 64)); err != nil {
		return nil, err
	}
	if err = w.Close(); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url+"/detect", &b)
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
		return nil, fmt.Errorf("shot detect %s: %s", resp.Status, string(body))
	}

	var out shotResp
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("shot detect decode: %w", err)
	}

	var cuts []float64
	for i, s := range out.Scenes {
		if i == len(out.Scenes)-1 {
			break
		}
		cuts = append(cuts, s.EndTime)
	}
	return cuts, nil
}

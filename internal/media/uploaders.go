package media

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
	"strings"
	"time"

	"github.com/google/uuid"
)

const cloudinaryAPI = "https://api.cloudinary.com/v1_1"

// Cloudinary uploads through an unsigned upload preset.
type Cloudinary struct {
	CloudName    string
	UploadPreset string
	Folder       string
	// BaseURL overrides the API root, for tests.
	BaseURL string
	Client  *http.Client
}

func NewCloudinary(cloudName, preset, folder string) *Cloudinary {
	return &Cloudinary{
		CloudName:    cloudName,
		UploadPreset: preset,
		Folder:       folder,
		BaseURL:      cloudinaryAPI,
		Client:       &http.Client{Timeout: 60 * time.Second},
	}
}

type cloudinaryResponse struct {
	SecureURL string `json:"secure_url"`
	Error     *struct {
		Message string `json:"message"`
	} `json:"error"`
}

func (c *Cloudinary) Upload(ctx context.Context, name string, r io.Reader) (string, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", name)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(part, r); err != nil {
		return "", err
	}
	if err := mw.WriteField("upload_preset", c.UploadPreset); err != nil {
		return "", err
	}
	if c.Folder != "" {
		if err := mw.WriteField("folder", c.Folder); err != nil {
			return "", err
		}
	}
	if err := mw.Close(); err != nil {
		return "", err
	}

	endpoint := fmt.Sprintf("%s/%s/image/upload", strings.TrimRight(c.BaseURL, "/"), c.CloudName)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, &body)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := c.Client.Do(req)
	if err != nil {
		return "", fmt.Errorf("image host: %w", err)
	}
	defer resp.Body.Close()

	var out cloudinaryResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&out); err != nil && resp.StatusCode < 300 {
		return "", fmt.Errorf("image host response: %w", err)
	}
	if resp.StatusCode >= 300 {
		msg := resp.Status
		if out.Error != nil && out.Error.Message != "" {
			msg = out.Error.Message
		}
		return "", fmt.Errorf("image host rejected %s: %s", name, msg)
	}
	if out.SecureURL == "" {
		return "", fmt.Errorf("image host returned no url for %s", name)
	}
	return out.SecureURL, nil
}

// Local writes images under Dir and serves them from URLPrefix.
type Local struct {
	Dir       string
	URLPrefix string
}

func (l *Local) Upload(_ context.Context, name string, r io.Reader) (string, error) {
	if err := os.MkdirAll(l.Dir, 0o755); err != nil {
		return "", err
	}
	filename := uuid.New().String() + filepath.Ext(name)
	out, err := os.Create(filepath.Join(l.Dir, filename))
	if err != nil {
		return "", fmt.Errorf("save image: %w", err)
	}
	defer out.Close()
	if _, err := io.Copy(out, r); err != nil {
		return "", fmt.Errorf("save image: %w", err)
	}
	return strings.TrimRight(l.URLPrefix, "/") + "/" + filename, nil
}

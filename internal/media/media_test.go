package media

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
)

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		img.Set(x, h/2, color.RGBA{R: 200, A: 255})
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestPrepareResizesWideImages(t *testing.T) {
	out, err := Prepare("wide.PNG", pngBytes(t, 1600, 800))
	if err != nil {
		t.Fatal(err)
	}
	img, err := jpeg.Decode(bytes.NewReader(out))
	if err != nil {
		t.Fatalf("output is not JPEG: %v", err)
	}
	if b := img.Bounds(); b.Dx() != MaxWidth || b.Dy() != 600 {
		t.Errorf("size = %dx%d, want %dx600", b.Dx(), b.Dy(), MaxWidth)
	}

	out, err = Prepare("small.png", pngBytes(t, 400, 300))
	if err != nil {
		t.Fatal(err)
	}
	img, _ = jpeg.Decode(bytes.NewReader(out))
	if img.Bounds().Dx() != 400 {
		t.Errorf("small image resized to %d", img.Bounds().Dx())
	}
}

func TestPrepareRejectsOtherFormats(t *testing.T) {
	if _, err := Prepare("anim.gif", []byte("GIF89a")); !errors.Is(err, ErrUnsupportedFormat) {
		t.Errorf("gif = %v", err)
	}
	if _, err := Prepare("broken.jpg", []byte("not a jpeg")); err == nil {
		t.Error("corrupt jpeg accepted")
	}
}

func TestCheckLimits(t *testing.T) {
	small := File{Name: "a.png", Data: []byte{1}}
	tests := []struct {
		name  string
		files []File
		want  error
	}{
		{"none", nil, ErrNoFiles},
		{"six", []File{small, small, small, small, small, small}, ErrTooManyFiles},
		{"oversize", []File{small, {Name: "big.jpg", Data: make([]byte, MaxFileSize+1)}}, ErrFileTooLarge},
		{"ok", []File{small, small, small, small, small}, nil},
	}
	for _, tt := range tests {
		if err := Check(tt.files); !errors.Is(err, tt.want) {
			t.Errorf("%s: Check = %v, want %v", tt.name, err, tt.want)
		}
	}
}

type fakeUploader struct {
	calls  int
	failAt int
}

func (f *fakeUploader) Upload(_ context.Context, name string, r io.Reader) (string, error) {
	f.calls++
	if f.calls == f.failAt {
		return "", errors.New("boom")
	}
	io.Copy(io.Discard, r)
	return fmt.Sprintf("https://img.test/%d/%s", f.calls, name), nil
}

func TestUploadAllReportsProgress(t *testing.T) {
	files := []File{
		{Name: "one.png", Data: pngBytes(t, 10, 10)},
		{Name: "two.png", Data: pngBytes(t, 10, 10)},
		{Name: "three.png", Data: pngBytes(t, 10, 10)},
	}
	var seen []string
	urls, err := UploadAll(context.Background(), &fakeUploader{}, files, func(done, total int) {
		seen = append(seen, fmt.Sprintf("%d/%d", done, total))
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(urls) != 3 || urls[0] != "https://img.test/1/one.jpg" {
		t.Errorf("urls = %v", urls)
	}
	if strings.Join(seen, ",") != "1/3,2/3,3/3" {
		t.Errorf("progress = %v", seen)
	}
}

func TestUploadAllStopsAtFirstFailure(t *testing.T) {
	files := []File{
		{Name: "one.png", Data: pngBytes(t, 10, 10)},
		{Name: "two.png", Data: pngBytes(t, 10, 10)},
		{Name: "three.png", Data: pngBytes(t, 10, 10)},
	}
	up := &fakeUploader{failAt: 2}
	urls, err := UploadAll(context.Background(), up, files, nil)
	if err == nil || urls != nil {
		t.Fatalf("UploadAll = %v, %v; want error and no urls", urls, err)
	}
	if up.calls != 2 {
		t.Errorf("uploader called %d times, want 2", up.calls)
	}
}

func TestUploadAllChecksBeforeUploading(t *testing.T) {
	up := &fakeUploader{}
	files := make([]File, MaxFiles+1)
	if _, err := UploadAll(context.Background(), up, files, nil); !errors.Is(err, ErrTooManyFiles) {
		t.Fatalf("err = %v", err)
	}
	if up.calls != 0 {
		t.Error("uploader called for an invalid batch")
	}
}

func TestCloudinaryUpload(t *testing.T) {
	var requests atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		if r.URL.Path != "/demo/image/upload" {
			http.NotFound(w, r)
			return
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if r.FormValue("upload_preset") != "unsigned" || r.FormValue("folder") != "auranova-products" {
			w.WriteHeader(http.StatusBadRequest)
			io.WriteString(w, `{"error":{"message":"bad preset"}}`)
			return
		}
		_, hdr, err := r.FormFile("file")
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		fmt.Fprintf(w, `{"secure_url":"https://res.test/%s"}`, hdr.Filename)
	}))
	defer srv.Close()

	c := NewCloudinary("demo", "unsigned", "auranova-products")
	c.BaseURL = srv.URL
	url, err := c.Upload(context.Background(), "shirt.jpg", strings.NewReader("jpegdata"))
	if err != nil {
		t.Fatal(err)
	}
	if url != "https://res.test/shirt.jpg" {
		t.Errorf("url = %q", url)
	}

	c.UploadPreset = "wrong"
	_, err = c.Upload(context.Background(), "shirt.jpg", strings.NewReader("jpegdata"))
	if err == nil || !strings.Contains(err.Error(), "bad preset") {
		t.Errorf("rejected upload err = %v", err)
	}
	if requests.Load() != 2 {
		t.Errorf("requests = %d", requests.Load())
	}
}

func TestLocalUpload(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "uploads")
	l := &Local{Dir: dir, URLPrefix: "/static/uploads/"}
	url, err := l.Upload(context.Background(), "x.jpg", strings.NewReader("data"))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(url, "/static/uploads/") || !strings.HasSuffix(url, ".jpg") {
		t.Errorf("url = %q", url)
	}
	got, err := os.ReadFile(filepath.Join(dir, filepath.Base(url)))
	if err != nil || string(got) != "data" {
		t.Errorf("file = %q, %v", got, err)
	}
}

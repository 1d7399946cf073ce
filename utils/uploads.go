package utils

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"mime/multipart"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"
)

// ImageUploadDir is the folder under the media root that post images go to.
const ImageUploadDir = "posts"

var (
	ErrNotAnImage    = errors.New("upload a valid image. The file you uploaded was either not an image or a corrupted image")
	ErrImageTooLarge = errors.New("image file is too large")
	ErrEmptyFile     = errors.New("the submitted file is empty")

	unsafeFilename = regexp.MustCompile(`[^-\p{L}\p{N}_.]`)
)

// StoredImage describes an image written under the media root.
type StoredImage struct {
	Name    string // relative to media root, like posts/small.gif
	AbsPath string
}

// ReadImage reads and validates an uploaded image, returning its bytes.
func ReadImage(fh *multipart.FileHeader, maxBytes int64) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("open upload: %w", err)
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	if len(data) == 0 {
		return nil, ErrEmptyFile
	}
	if int64(len(data)) > maxBytes {
		return nil, ErrImageTooLarge
	}
	if !strings.HasPrefix(mimetype.Detect(data).String(), "image/") {
		return nil, ErrNotAnImage
	}
	if _, _, err := image.DecodeConfig(bytes.NewReader(data)); err != nil {
		return nil, ErrNotAnImage
	}
	return data, nil
}

// SaveImage writes data to <mediaRoot>/posts/<filename>. An existing file is never
// overwritten: a short random suffix is inserted before the extension instead.
func SaveImage(mediaRoot, filename string, data []byte) (*StoredImage, error) {
	dir := filepath.Join(mediaRoot, ImageUploadDir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload directory: %w", err)
	}

	name := ValidFilename(filename)
	for attempt := 0; attempt < 10; attempt++ {
		dst := filepath.Join(dir, name)
		f, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if errors.Is(err, os.ErrExist) {
			ext := filepath.Ext(name)
			name = strings.TrimSuffix(ValidFilename(filename), ext) + "_" + uuid.NewString()[:7] + ext
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("create %s: %w", dst, err)
		}
		if _, err := f.Write(data); err != nil {
			_ = f.Close()
			_ = os.Remove(dst)
			return nil, fmt.Errorf("write %s: %w", dst, err)
		}
		if err := f.Close(); err != nil {
			return nil, err
		}
		abs, _ := filepath.Abs(dst)
		return &StoredImage{Name: path.Join(ImageUploadDir, name), AbsPath: abs}, nil
	}
	return nil, fmt.Errorf("could not find a free name for %q", filename)
}

// ValidFilename keeps the base name, turns spaces into "_" and drops anything but
// letters, digits, "-", "_" and ".". A name left without a stem gets a random one.
func ValidFilename(name string) string {
	name = filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	name = strings.ReplaceAll(strings.TrimSpace(name), " ", "_")
	name = unsafeFilename.ReplaceAllString(name, "")
	ext := filepath.Ext(name)
	if stem := strings.TrimSuffix(name, ext); strings.Trim(stem, "._") == "" {
		name = "image_" + uuid.NewString()[:8]
		if e := strings.Trim(ext, "._"); e != "" {
			name += "." + e
		}
	}
	return name
}

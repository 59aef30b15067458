package media

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
)

var allowedExtensions = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".gif":  true,
	".webp": true,
}

// maxDimension bounds both sides of a stored photo.
const maxDimension = 800

// AllowedFile reports whether the filename carries an accepted image
// extension and no path-traversal characters.
func AllowedFile(filename string) bool {
	if filename == "" || strings.Contains(filename, "..") ||
		strings.ContainsAny(filename, "/\\") {
		return false
	}
	return allowedExtensions[strings.ToLower(filepath.Ext(filename))]
}

// SavePhoto validates, downsizes and stores an uploaded profile photo.
//
// The image is decoded (rejecting non-image payloads), fitted inside
// 800x800, and re-encoded as JPEG quality 85 under a random
// "<userID>_<kind>_<token>.jpg" name, stripping original metadata. Returns
// the stored filename.
func SavePhoto(dir string, maxBytes int64, userID uint64, kind string, fh *multipart.FileHeader) (string, error) {
	if fh == nil || !AllowedFile(fh.Filename) {
		return "", fmt.Errorf("file type not allowed")
	}
	if fh.Size > maxBytes {
		return "", fmt.Errorf("file too large (max %d bytes)", maxBytes)
	}

	src, err := fh.Open()
	if err != nil {
		return "", fmt.Errorf("failed to open upload: %w", err)
	}
	defer src.Close()

	img, err := imaging.Decode(src, imaging.AutoOrientation(true))
	if err != nil {
		return "", fmt.Errorf("invalid image: %w", err)
	}
	img = imaging.Fit(img, maxDimension, maxDimension, imaging.Lanczos)

	token := make([]byte, 8)
	if _, err := rand.Read(token); err != nil {
		return "", err
	}
	filename := fmt.Sprintf("%d_%s_%s.jpg", userID, kind, hex.EncodeToString(token))

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create upload dir: %w", err)
	}
	path := filepath.Join(dir, filename)
	if !strings.HasPrefix(filepath.Clean(path), filepath.Clean(dir)) {
		return "", fmt.Errorf("invalid upload path")
	}

	if err := imaging.Save(img, path, imaging.JPEGQuality(85)); err != nil {
		return "", fmt.Errorf("failed to save image: %w", err)
	}
	return filename, nil
}

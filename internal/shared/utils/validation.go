package utils

import (
	"fmt"
	"net/url"
	"path/filepath"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/gabriel-vasile/mimetype"
)

// Size limits
const (
	MaxJSONSize       = 1 * 1024 * 1024 // 1MB - maximum studio request body
	MaxUploadSize     = 5 * 1024 * 1024 // 5MB - largest image the poster service accepts
	MaxPromptLength   = 8 * 1024        // characters in one prompt
	MaxTopicLength    = 512
	MaxElementLength  = 16 * 1024 // characters in one directly edited element
	MaxImageURLs      = 20
	MinFontSize       = 6
	MaxFontSize       = 200
	MaxFontFamilySize = 64
)

var (
	// ColorPattern matches #RGB and #RRGGBB
	ColorPattern = regexp.MustCompile(`^#(?:[0-9a-fA-F]{3}|[0-9a-fA-F]{6})$`)
	// FontFamilyPattern allows letters, digits, spaces, hyphens and commas
	FontFamilyPattern = regexp.MustCompile(`^[a-zA-Z0-9 ,-]+$`)
)

// ImageTypes are the upload formats the poster service can embed.
var ImageTypes = []string{"image/png", "image/jpeg", "image/gif"}

var imageExtensions = map[string]bool{".png": true, ".jpg": true, ".jpeg": true, ".gif": true}

// ValidateText checks that s is valid UTF-8, non-blank and at most max characters.
func ValidateText(field, s string, max int) error {
	if !utf8.ValidString(s) {
		return fmt.Errorf("%s is not valid UTF-8", field)
	}
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("%s cannot be empty", field)
	}
	if n := utf8.RuneCountInString(s); n > max {
		return fmt.Errorf("%s is %d characters, maximum is %d", field, n, max)
	}
	return nil
}

// ValidateColor checks a hex color.
func ValidateColor(s string) error {
	if !ColorPattern.MatchString(s) {
		return fmt.Errorf("invalid color %q: want #RGB or #RRGGBB", s)
	}
	return nil
}

// ValidateFontSize checks a point size.
func ValidateFontSize(n int) error {
	if n < MinFontSize || n > MaxFontSize {
		return fmt.Errorf("font size %d out of range [%d, %d]", n, MinFontSize, MaxFontSize)
	}
	return nil
}

// ValidateFontFamily checks a font family name.
func ValidateFontFamily(s string) error {
	if len(s) > MaxFontFamilySize || !FontFamilyPattern.MatchString(s) {
		return fmt.Errorf("invalid font family %q", s)
	}
	return nil
}

// ValidateImageURLs checks a section's image list. Each entry is an absolute
// http(s) URL or a server-relative path.
func ValidateImageURLs(urls []string) error {
	if len(urls) > MaxImageURLs {
		return fmt.Errorf("too many images: %d, maximum is %d", len(urls), MaxImageURLs)
	}
	for _, raw := range urls {
		u, err := url.Parse(raw)
		if err != nil || raw == "" {
			return fmt.Errorf("invalid image url %q", raw)
		}
		if u.IsAbs() && u.Scheme != "http" && u.Scheme != "https" {
			return fmt.Errorf("invalid image url %q: unsupported scheme", raw)
		}
		if !u.IsAbs() && !strings.HasPrefix(u.Path, "/") {
			return fmt.Errorf("invalid image url %q: want absolute url or /path", raw)
		}
	}
	return nil
}

// ValidateImageUpload checks an upload's name, size and content and returns
// the sniffed MIME type.
func ValidateImageUpload(filename string, data []byte, maxSize int64) (string, error) {
	if filename == "" || filepath.Base(filename) != filename {
		return "", fmt.Errorf("invalid file name %q", filename)
	}
	if !imageExtensions[strings.ToLower(filepath.Ext(filename))] {
		return "", fmt.Errorf("unsupported file type %q: allowed .png, .jpg, .jpeg, .gif", filepath.Ext(filename))
	}
	if len(data) == 0 {
		return "", fmt.Errorf("file %q is empty", filename)
	}
	if int64(len(data)) > maxSize {
		return "", fmt.Errorf("file %q is %d bytes, maximum is %d", filename, len(data), maxSize)
	}

	mt := mimetype.Detect(data)
	if !mimetype.EqualsAny(mt.String(), ImageTypes...) {
		return "", fmt.Errorf("file %q content is %s, not an image", filename, mt.String())
	}
	return mt.String(), nil
}

package httpapi

import (
	"errors"
	"path"
	"regexp"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation"
)

const (
	maxSanitizedLen = 1000
	maxFilenameLen  = 255
	// bcrypt ignores input past 72 bytes and x/crypto rejects it outright.
	maxPasswordLen = 72
)

var (
	usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9_]{3,20}$`)

	passwordCharset = regexp.MustCompile(`^[a-zA-Z\d@$!%*?&]+$`)
	hasLower        = regexp.MustCompile(`[a-z]`)
	hasUpper        = regexp.MustCompile(`[A-Z]`)
	hasDigit        = regexp.MustCompile(`\d`)

	htmlTag        = regexp.MustCompile(`<[^>]*>`)
	dangerousChars = regexp.MustCompile(`[<>"'&]`)

	unsafeFilenameChars = `\/:*?"<>|`
)

var allowedContentTypes = map[string]bool{
	"image/jpeg":      true,
	"image/jpg":       true,
	"image/png":       true,
	"image/webp":      true,
	"application/pdf": true,
}

var allowedExtensions = map[string]bool{
	"jpg":  true,
	"jpeg": true,
	"png":  true,
	"webp": true,
	"pdf":  true,
}

type credentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// validateLogin checks the username format; the password only has to be
// present; a wrong one fails later as invalid credentials.
func (r credentialsRequest) validateLogin() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Username, validation.Required, validation.Match(usernamePattern)),
		validation.Field(&r.Password, validation.Required),
	)
}

// validateSignup enforces the username format and the password policy: 8 to
// 72 characters from [a-zA-Z0-9@$!%*?&] with at least one lower case letter,
// one upper case letter and one digit.
func (r credentialsRequest) validateSignup() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Username, validation.Required, validation.Match(usernamePattern)),
		validation.Field(&r.Password,
			validation.Required,
			validation.Length(8, maxPasswordLen),
			validation.Match(passwordCharset),
			validation.Match(hasLower).Error("must contain a lower case letter"),
			validation.Match(hasUpper).Error("must contain an upper case letter"),
			validation.Match(hasDigit).Error("must contain a digit"),
		),
	)
}

// sanitize strips HTML tags and the characters < > " ' &, caps the length
// and trims surrounding whitespace.
func sanitize(s string) string {
	s = htmlTag.ReplaceAllString(s, "")
	s = dangerousChars.ReplaceAllString(s, "")
	if r := []rune(s); len(r) > maxSanitizedLen {
		s = string(r[:maxSanitizedLen])
	}
	return strings.TrimSpace(s)
}

type uploadMeta struct {
	Filename    string
	ContentType string
	Size        int64
}

// validateUpload checks declared metadata only, the bytes are not sniffed.
func validateUpload(m uploadMeta, maxBytes int64) error {
	return validation.ValidateStruct(&m,
		validation.Field(&m.Size,
			validation.Required.Error("file cannot be empty"),
			validation.Max(maxBytes).Error("file is too large"),
		),
		validation.Field(&m.Filename,
			validation.Length(0, maxFilenameLen).Error("filename is too long"),
			validation.By(safeFilename),
		),
		validation.Field(&m.ContentType, validation.By(func(interface{}) error {
			if allowedType(m.ContentType) || allowedExtension(m.Filename) {
				return nil
			}
			return errors.New("invalid file type, allowed formats: JPG, PNG, WEBP, PDF")
		})),
	)
}

func safeFilename(value interface{}) error {
	name, _ := value.(string)
	if strings.Contains(name, "..") || strings.ContainsAny(name, unsafeFilenameChars) {
		return errors.New("invalid filename characters detected")
	}
	return nil
}

func allowedType(contentType string) bool {
	ct := strings.ToLower(strings.TrimSpace(contentType))
	if i := strings.IndexByte(ct, ';'); i >= 0 {
		ct = strings.TrimSpace(ct[:i])
	}
	return allowedContentTypes[ct] || strings.HasPrefix(ct, "image/")
}

func allowedExtension(filename string) bool {
	ext := strings.TrimPrefix(strings.ToLower(path.Ext(filename)), ".")
	return ext != "" && allowedExtensions[ext]
}

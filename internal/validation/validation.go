// Package validation checks identifiers and paths received from the browser
// before they are forwarded to the backend.
package validation

import (
	"errors"
	"path"
	"regexp"
	"strings"
)

var (
	// ErrInputEmpty indicates a required value is missing.
	ErrInputEmpty = errors.New("input is empty")
	// ErrInputTooLong indicates input exceeds maximum length.
	ErrInputTooLong = errors.New("input exceeds maximum length")
	// ErrInputInvalid indicates input contains invalid characters.
	ErrInputInvalid = errors.New("input contains invalid characters")
	// ErrUnknownService indicates a service that is not configured.
	ErrUnknownService = errors.New("unknown service")
	// ErrUnsupportedUpload indicates an upload with an unexpected extension.
	ErrUnsupportedUpload = errors.New("unsupported project file")
)

var (
	jobIDPattern   = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_\-]*$`)
	backupPattern  = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_.\-]*$`)
	servicePattern = regexp.MustCompile(`^[a-z0-9][a-z0-9_.@\-]*$`)
)

// UploadExtensions lists accepted project export types.
var UploadExtensions = []string{".knxproj", ".xml", ".csv"}

// ValidateJobID validates a backend job id.
func ValidateJobID(id string) error {
	return match(id, 64, jobIDPattern)
}

// ValidateBackupName validates a backup name.
func ValidateBackupName(name string) error {
	if strings.Contains(name, "..") {
		return ErrInputInvalid
	}
	return match(name, 128, backupPattern)
}

// ValidateService validates a service name against the configured list.
func ValidateService(name string, allowed []string) error {
	if err := match(name, 64, servicePattern); err != nil {
		return err
	}
	for _, a := range allowed {
		if a == name {
			return nil
		}
	}
	return ErrUnknownService
}

// ValidateFilePath validates the relative path of a generated file.
func ValidateFilePath(p string) error {
	if p == "" {
		return ErrInputEmpty
	}
	if len(p) > 512 {
		return ErrInputTooLong
	}
	if strings.ContainsAny(p, "\x00\n\r") {
		return ErrInputInvalid
	}
	p = strings.ReplaceAll(p, `\`, "/")
	if strings.HasPrefix(p, "/") {
		return ErrInputInvalid
	}
	for _, seg := range strings.Split(p, "/") {
		if seg == ".." {
			return ErrInputInvalid
		}
	}
	return nil
}

// ValidateUploadName validates the filename of a project export.
func ValidateUploadName(name string) error {
	if name == "" {
		return ErrInputEmpty
	}
	if len(name) > 255 {
		return ErrInputTooLong
	}
	ext := strings.ToLower(path.Ext(name))
	for _, e := range UploadExtensions {
		if ext == e {
			return nil
		}
	}
	return ErrUnsupportedUpload
}

func match(s string, maxLength int, re *regexp.Regexp) error {
	if s == "" {
		return ErrInputEmpty
	}
	if len(s) > maxLength {
		return ErrInputTooLong
	}
	if !re.MatchString(s) {
		return ErrInputInvalid
	}
	return nil
}

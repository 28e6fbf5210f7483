package document

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidPath is returned for malformed collection or document paths
var ErrInvalidPath = errors.New("invalid document path")

const documentsSegment = "/documents/"

// DatabaseName returns the database resource name
func DatabaseName(project, database string) string {
	return fmt.Sprintf("projects/%s/databases/%s", project, database)
}

// DocumentsRoot returns the resource name under which document paths live
func DocumentsRoot(project, database string) string {
	return DatabaseName(project, database) + "/documents"
}

// ResourceName joins a relative path onto the documents root
func ResourceName(project, database, path string) string {
	return DocumentsRoot(project, database) + "/" + strings.Trim(path, "/")
}

// RelativePath strips the database prefix from a resource name. Names without
// a documents segment are returned unchanged when they already look relative.
func RelativePath(name string) (string, error) {
	if i := strings.Index(name, documentsSegment); i >= 0 {
		rel := name[i+len(documentsSegment):]
		if rel == "" {
			return "", fmt.Errorf("%w: %q", ErrInvalidPath, name)
		}
		return rel, nil
	}
	if name == "" || strings.HasPrefix(name, "projects/") {
		return "", fmt.Errorf("%w: %q", ErrInvalidPath, name)
	}
	return strings.Trim(name, "/"), nil
}

// ID returns the last segment of a path or resource name
func ID(path string) string {
	path = strings.TrimRight(path, "/")
	if i := strings.LastIndexByte(path, '/'); i >= 0 {
		return path[i+1:]
	}
	return path
}

// Segments splits a relative path, rejecting empty segments
func Segments(path string) ([]string, error) {
	trimmed := strings.Trim(path, "/")
	if trimmed == "" {
		return nil, fmt.Errorf("%w: empty path", ErrInvalidPath)
	}
	parts := strings.Split(trimmed, "/")
	for _, p := range parts {
		if p == "" || p == "." || p == ".." {
			return nil, fmt.Errorf("%w: %q", ErrInvalidPath, path)
		}
	}
	return parts, nil
}

// ValidateCollection checks that path names a collection (odd segment count)
func ValidateCollection(path string) error {
	parts, err := Segments(path)
	if err != nil {
		return err
	}
	if len(parts)%2 != 1 {
		return fmt.Errorf("%w: %q is not a collection path", ErrInvalidPath, path)
	}
	return nil
}

// ValidateDocument checks that path names a document (even segment count)
func ValidateDocument(path string) error {
	parts, err := Segments(path)
	if err != nil {
		return err
	}
	if len(parts)%2 != 0 {
		return fmt.Errorf("%w: %q is not a document path", ErrInvalidPath, path)
	}
	return nil
}

// SplitCollection returns the parent document path ("" for root collections)
// and the collection id
func SplitCollection(path string) (parent, collectionID string, err error) {
	if err := ValidateCollection(path); err != nil {
		return "", "", err
	}
	trimmed := strings.Trim(path, "/")
	i := strings.LastIndexByte(trimmed, '/')
	if i < 0 {
		return "", trimmed, nil
	}
	return trimmed[:i], trimmed[i+1:], nil
}

// Parent returns the collection path containing a document path
func Parent(path string) string {
	trimmed := strings.Trim(path, "/")
	if i := strings.LastIndexByte(trimmed, '/'); i >= 0 {
		return trimmed[:i]
	}
	return ""
}

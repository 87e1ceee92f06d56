package pointlist

import (
	"fmt"
	"os"
	"path/filepath"
)

// WriteFile serializes list to path. The document is written to a temporary
// file in the same directory and renamed into place, so readers never see a
// partial document. An empty list is rejected and nothing is written.
func WriteFile(path string, list PointList) error {
	if len(list) == 0 {
		return &ValidationError{Reason: "no points to save"}
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".pointlist-*.xml")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if err := tmp.Chmod(0644); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to set point list permissions: %w", err)
	}
	if err := Encode(tmp, list); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write point list: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close point list: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("failed to move point list into place: %w", err)
	}
	return nil
}

// ReadFile decodes the document at path without renaming its points.
func ReadFile(path string) (PointList, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	return decode(f, path)
}

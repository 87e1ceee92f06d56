package pointlist

import (
	"fmt"
	"io"
	"os"
)

// Source is one document taking part in a merge.
type Source struct {
	Name   string // file name; its base name prefixes every point name
	Reader io.Reader
}

// Merge parses each source independently and concatenates their points in
// source order. Names are prefixed per ParseSource; coordinates are untouched
// and duplicate names are kept.
func Merge(sources ...Source) (PointList, error) {
	if len(sources) == 0 {
		return nil, &ValidationError{Reason: "no files selected to merge"}
	}

	lists := make([]PointList, 0, len(sources))
	for _, src := range sources {
		l, err := ParseSource(src.Reader, src.Name)
		if err != nil {
			return nil, err
		}
		lists = append(lists, l)
	}
	return Concat(lists...), nil
}

// MergeFiles merges the documents at paths, in order. A path listed more than
// once is merged once, at its first position.
func MergeFiles(paths []string) (PointList, error) {
	paths = dedupe(paths)
	if len(paths) == 0 {
		return nil, &ValidationError{Reason: "no files selected to merge"}
	}

	lists := make([]PointList, 0, len(paths))
	for _, path := range paths {
		l, err := parseFile(path)
		if err != nil {
			return nil, err
		}
		lists = append(lists, l)
	}
	return Concat(lists...), nil
}

func parseFile(path string) (PointList, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	return ParseSource(f, path)
}

func dedupe(paths []string) []string {
	seen := make(map[string]bool, len(paths))
	out := make([]string, 0, len(paths))
	for _, p := range paths {
		if seen[p] {
			continue
		}
		seen[p] = true
		out = append(out, p)
	}
	return out
}

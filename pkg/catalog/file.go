package catalog

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/tidwall/gjson"
)

// LoadCourses reads a catalog file: a JSON array of Course records.
func LoadCourses(path string) ([]Course, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading catalog: %w", err)
	}

	var courses []Course
	if err := json.Unmarshal(data, &courses); err != nil {
		return nil, fmt.Errorf("decoding catalog %s: %w", path, err)
	}
	return courses, nil
}

// SaveCourses writes courses as a JSON array, creating parent directories.
func SaveCourses(path string, courses []Course) error {
	if courses == nil {
		courses = []Course{}
	}
	data, err := json.Marshal(courses)
	if err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return os.WriteFile(path, data, 0o644)
}

// LoadRawCourses reads a list of course listings. Entries without a subject
// or number are skipped; numbers may be JSON strings or numbers.
func LoadRawCourses(path string) ([]RawCourse, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading course list: %w", err)
	}
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("course list %s is not valid JSON", path)
	}
	return parseRawCourses(gjson.ParseBytes(data)), nil
}

func parseRawCourses(list gjson.Result) []RawCourse {
	var out []RawCourse
	list.ForEach(func(_, item gjson.Result) bool {
		rc := RawCourse{
			SubjectID:   item.Get("subjectId").String(),
			SubjectLong: item.Get("subjectLong").String(),
			Number:      item.Get("number").String(),
			Title:       CleanTitle(item.Get("title").String()),
		}
		if rc.SubjectID != "" && rc.Number != "" {
			out = append(out, rc)
		}
		return true
	})
	return out
}

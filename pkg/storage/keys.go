package storage

import "strings"

func courseKey(subjectID, callNumber string) string {
	return strings.ToUpper(strings.TrimSpace(subjectID)) + "|" + strings.ToUpper(strings.TrimSpace(callNumber))
}

func normalizeSubject(subjectID string) string {
	return strings.ToUpper(strings.TrimSpace(subjectID))
}

package graph

import (
	"strings"

	colorful "github.com/lucasb-eyer/go-colorful"
)

// SubjectColor returns a stable hex colour for a subject code so that all
// courses of one subject share a colour.
func SubjectColor(subjectID string) string {
	var h int32
	for _, c := range strings.ToUpper(subjectID) {
		h = h*31 + c
	}
	hue := float64(uint32(h)%360)
	return colorful.Hsv(hue, 0.6, 0.9).Hex()
}

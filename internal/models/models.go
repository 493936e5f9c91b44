// Package models declares the four site entities and the descriptors that
// drive the shared resource pipeline for each of them.
package models

import (
	"strings"
	"time"
)

// postedDateLayout renders postedAt the way the public site shows it.
const postedDateLayout = "1/2/2006"

func postedDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(postedDateLayout)
}

func trim(s string) string { return strings.TrimSpace(s) }

package models

import (
	"strings"
	"time"
)

const (
	TracePrefixSearch = "AI"
	TracePrefixMock   = "MOCK"
)

// NewTraceID builds a backend trace id: prefix + yyyyMMddHHmmss + milliseconds.
func NewTraceID(prefix string, now time.Time) string {
	return prefix + strings.Replace(now.Format("20060102150405.000"), ".", "", 1)
}

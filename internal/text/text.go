// Package text provides shared excerpt helpers.
// Consolidates the duplicate truncate implementations that grew in the
// dispatch and synthesis packages.
package text

// Clip hard-cuts s to max bytes with no marker. Used when bounding
// prompt material, where a marker would leak into model input.
func Clip(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}

// Excerpt cuts s to max bytes and appends a truncation marker when
// anything was dropped.
func Excerpt(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}

package reconcile

// ShouldApply reports whether newContent is worth submitting. An empty result set
// never replaces an existing list, and identical text is never resubmitted.
func ShouldApply(oldContent, newContent string, rowCount int) bool {
	if rowCount == 0 {
		return false
	}
	return newContent != oldContent
}

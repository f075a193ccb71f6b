package cli

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// printer renders numbers with grouping separators for human output.
var printer = message.NewPrinter(language.English)

// formatBytes renders a byte count in the nearest binary unit.
func formatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return printer.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return printer.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}

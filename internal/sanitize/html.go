package sanitize

import "github.com/microcosm-cc/bluemonday"

// UGCPolicy keeps basic formatting (paragraphs, emphasis, links, lists)
// and drops scripts, frames, event handlers and inline styles.
var UGCPolicy = bluemonday.UGCPolicy()

// HTML cleans an admin-authored reply body before it is mailed out.
func HTML(input string) string {
	return UGCPolicy.Sanitize(input)
}

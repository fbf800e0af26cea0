package nhttp

var (
	errorPageHead = []byte("<html><head><title>500 - Internal Server Error</title></head>" +
		"<body><h1>500 - Internal Server Error</h1>")
	errorPageTail = []byte("</body></html>")
)

// appendErrorPage appends the built-in HTML body sent for unhandled
// handler errors and post-prolog protocol failures.
func appendErrorPage(dst []byte, err error) []byte {
	dst = append(dst, errorPageHead...)
	if err != nil {
		dst = append(dst, "<p><code>"...)
		dst = AppendHTMLEscape(dst, err.Error())
		dst = append(dst, "</code></p>"...)
	}
	return append(dst, errorPageTail...)
}

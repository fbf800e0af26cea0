package nhttp

// Status codes with a built-in status description. Hosts may set any
// code on the response; the library itself produces 200, 301, 302 and
// 500.
const (
	StatusOK                  = 200
	StatusMovedPermanently    = 301
	StatusFound               = 302
	StatusBadRequest          = 400
	StatusNotFound            = 404
	StatusInternalServerError = 500
)

// statusMessage returns the default status description for the given
// status code. Unknown codes get an empty description, which the
// serializer omits from the status line.
func statusMessage(statusCode int) string {
	switch statusCode {
	case StatusOK:
		return "OK"
	case StatusMovedPermanently, StatusFound:
		return "Moved"
	case StatusBadRequest:
		return "Bad Request"
	case StatusNotFound:
		return "Not Found"
	case StatusInternalServerError:
		return "Internal Server Error"
	}
	return ""
}

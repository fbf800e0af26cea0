package nhttp

var (
	defaultServerName  = []byte("nhttp server")
	defaultContentType = []byte("text/html")
	defaultCharset     = []byte("utf-8")
)

var (
	strSlash            = []byte("/")
	strCRLF             = []byte("\r\n")
	strHTTP             = []byte("http")
	strHTTPS            = []byte("https")
	strHTTP11           = []byte("HTTP/1.1")
	strColonSlashSlash  = []byte("://")
	strColonSpace       = []byte(": ")
	strSlashSlash       = []byte("//")
	strSlashDotDot      = []byte("/..")
	strSlashDotSlash    = []byte("/./")
	strSlashDotDotSlash = []byte("/../")

	strConnection         = []byte("Connection")
	strContentLength      = []byte("Content-Length")
	strContentType        = []byte("Content-Type")
	strContentDisposition = []byte("Content-Disposition")
	strTransferEncoding   = []byte("Transfer-Encoding")
	strExpect             = []byte("Expect")
	strHost               = []byte("Host")
	strDate               = []byte("Date")
	strServer             = []byte("Server")
	strLocation           = []byte("Location")
	strCacheControl       = []byte("Cache-Control")
	strExpires            = []byte("Expires")
	strSetCookie          = []byte("Set-Cookie")

	strKeepAlive   = []byte("keep-alive")
	strChunked     = []byte("chunked")
	str100Continue = []byte("100-continue")

	strFormURLEncoded   = []byte("application/x-www-form-urlencoded")
	strMultipartForm    = []byte("multipart/form-data")
	strBoundary         = []byte("boundary")
	strCharset          = []byte("charset")
	strFilename         = []byte("filename")
	strFormName         = []byte("name")
	strDashDash         = []byte("--")
	strCRLFDashDash     = []byte("\r\n--")

	strCookieExpires  = []byte("expires")
	strCookieDomain   = []byte("domain")
	strCookiePath     = []byte("path")
	strCookieHTTPOnly = []byte("HttpOnly")
	strCookieSecure   = []byte("secure")

	strGMT = []byte("GMT")
)

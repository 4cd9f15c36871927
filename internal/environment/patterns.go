package environment

// DefaultAllowPatterns returns the allow-list for the sanitiser: the CGI
// meta-variables a handler legitimately consumes. The set is derived from
// Apache's suExec. Patterns ending in "=" match a whole variable name;
// the rest match name prefixes.
func DefaultAllowPatterns() []string {
	return []string{
		// Prefix patterns.
		"HTTP_",
		"SSL_",
		"REMOTE_",
		"SERVER_",
		"SCRIPT_",
		"DOCUMENT_",
		"REQUEST_",
		"REDIRECT_",
		"CONTENT_",
		"QUERY_STRING",

		// Whole-name patterns.
		"AUTH_TYPE=",
		"CONTEXT_DOCUMENT_ROOT=",
		"CONTEXT_PREFIX=",
		"DATE_GMT=",
		"DATE_LOCAL=",
		"GATEWAY_INTERFACE=",
		"HTTPS=",
		"LAST_MODIFIED=",
		"PATH_INFO=",
		"PATH_TRANSLATED=",
		"TZ=",
		"UNIQUE_ID=",
		"USER_NAME=",
	}
}

// DefaultDenyPatterns returns the deny-list. HTTP_PROXY would otherwise be
// admitted by the HTTP_ prefix and lets a request header steer the
// interpreter's outbound proxy (httpoxy).
func DefaultDenyPatterns() []string {
	return []string{
		"HTTP_PROXY=",
	}
}

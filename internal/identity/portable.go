package identity

// IsPortableName reports whether name is a portable user or group name:
// first character a letter or underscore, remaining characters letters,
// digits, dots, underscores, or dashes. Deliberately stricter than the
// POSIX portable-filename rules: the first character may not be a digit.
func IsPortableName(name string) bool {
	if name == "" {
		return false
	}
	if !isNameStart(name[0]) {
		return false
	}
	for i := 1; i < len(name); i++ {
		if !isNameChar(name[i]) {
			return false
		}
	}
	return true
}

// isNameStart checks if a byte is a letter (A-Z, a-z) or underscore
func isNameStart(char byte) bool {
	return (char >= 'A' && char <= 'Z') || (char >= 'a' && char <= 'z') || char == '_'
}

// isNameChar checks if a byte is a letter, digit, dot, underscore, or dash
func isNameChar(char byte) bool {
	return isNameStart(char) || (char >= '0' && char <= '9') || char == '.' || char == '-'
}

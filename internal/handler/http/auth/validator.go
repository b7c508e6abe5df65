package auth

import (
	"fmt"
	"os"
	"strings"
)

// weakPasswordList holds passwords rejected outright. The list covers the
// most common choices and the prefixes people pad them with.
var weakPasswordList = []string{
	"admin", "password", "123456", "secret",
	"admin123", "password123", "123456789", "12345678",
	"qwerty", "abc123", "letmein", "welcome",
	"monkey", "1234567890", "password1", "admin1",
	"test", "test123", "default", "root",
}

// keyboardPatterns are row walks checked in both directions.
var keyboardPatterns = []string{
	"qwertyuiop",
	"asdfghjkl",
	"zxcvbnm",
	"qwerty",
	"asdfgh",
	"zxcvb",
}

// 管理者パスワードの最低文字数
const minPasswordLength = 12

func credentialsError(format string, args ...any) error {
	return fmt.Errorf("admin credentials validation failed: "+format, args...)
}

// ValidateAdminCredentials checks the ADMIN_USER / ADMIN_USER_PASSWORD
// environment variables at startup. The admin account gates the website
// registry and manual scan triggers, so the process refuses to boot with
// empty or weak credentials.
//
// Rules: both variables must be set, the password must be at least 12
// characters, and it must not be a blacklisted password, a numeric
// sequence, or a keyboard walk. Error messages never echo the password.
func ValidateAdminCredentials() error {
	user := os.Getenv("ADMIN_USER")
	pass := os.Getenv("ADMIN_USER_PASSWORD")

	switch {
	case user == "":
		return credentialsError("ADMIN_USER must not be empty")
	case pass == "":
		return credentialsError("ADMIN_USER_PASSWORD must not be empty")
	case len(pass) < minPasswordLength:
		return credentialsError("ADMIN_USER_PASSWORD must be at least %d characters (current length: %d)", minPasswordLength, len(pass))
	}

	// Pattern checks run before the blacklist so a numeric sequence or
	// keyboard walk gets its specific error, not the generic prefix one.
	if isSimpleNumericPattern(pass) {
		return credentialsError("ADMIN_USER_PASSWORD must not be a simple numeric pattern")
	}
	if isKeyboardPattern(pass) {
		return credentialsError("ADMIN_USER_PASSWORD must not be a keyboard pattern")
	}

	lowerPass := strings.ToLower(pass)
	for _, weak := range weakPasswordList {
		if lowerPass == weak {
			return credentialsError("ADMIN_USER_PASSWORD must not be a weak password")
		}
		// "admin1234567890" のような弱いパスワード + 少量の水増しを弾く
		if strings.HasPrefix(lowerPass, weak) && len(pass) < minPasswordLength+5 {
			return credentialsError("ADMIN_USER_PASSWORD must not be based on common weak passwords")
		}
	}

	return nil
}

// isSimpleNumericPattern reports whether the password is a repeated
// character or an all-digit ascending/descending run such as
// "123456789012".
func isSimpleNumericPattern(pass string) bool {
	if len(pass) < minPasswordLength {
		return false
	}
	if isRepeatedChar(pass) {
		return true
	}
	if strings.ContainsFunc(pass, func(r rune) bool { return r < '0' || r > '9' }) {
		return false
	}

	isAscending := true
	isDescending := true
	for i := 1; i < len(pass); i++ {
		diff := int(pass[i]) - int(pass[i-1])
		// 9→0 / 0→9 の折り返しも連番とみなす
		if diff != 1 && diff != -9 {
			isAscending = false
		}
		if diff != -1 && diff != 9 {
			isDescending = false
		}
	}
	return isAscending || isDescending
}

func isRepeatedChar(pass string) bool {
	if len(pass) == 0 {
		return false
	}
	for i := 1; i < len(pass); i++ {
		if pass[i] != pass[0] {
			return false
		}
	}
	return true
}

func isKeyboardPattern(pass string) bool {
	lowerPass := strings.ToLower(pass)
	for _, pattern := range keyboardPatterns {
		if strings.Contains(lowerPass, pattern) || strings.Contains(lowerPass, reverse(pattern)) {
			return true
		}
	}
	return false
}

func reverse(s string) string {
	runes := []rune(s)
	for i, j := 0, len(runes)-1; i < j; i, j = i+1, j-1 {
		runes[i], runes[j] = runes[j], runes[i]
	}
	return string(runes)
}

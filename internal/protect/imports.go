package protect

import (
	"bufio"
	"path/filepath"
	"regexp"
	"strings"
)

// maxScanLines bounds how far into a source the import scan reads.
const maxScanLines = 200

type importRule struct {
	re     *regexp.Regexp
	reason string
}

func rule(pattern, reason string) importRule {
	return importRule{re: regexp.MustCompile(pattern), reason: reason}
}

// securityImports maps a language to imports that mark code as sensitive.
var securityImports = map[string][]importRule{
	"go": {
		rule(`"crypto/`, "cryptography"),
		rule(`"golang\.org/x/crypto/`, "cryptography"),
		rule(`"golang\.org/x/oauth2`, "OAuth2 authentication"),
		rule(`"github\.com/[^/]+/jwt`, "JWT authentication"),
		rule(`"database/sql"`, "database access"),
	},
	"javascript": {
		rule(`['"](node:)?crypto['"]`, "cryptography"),
		rule(`['"]bcrypt['"]`, "password hashing"),
		rule(`['"]jsonwebtoken['"]`, "JWT authentication"),
		rule(`['"]passport['"]`, "authentication"),
	},
	"python": {
		rule(`^\s*(import|from)\s+cryptography`, "cryptography"),
		rule(`^\s*(import|from)\s+jwt\b`, "JWT authentication"),
		rule(`^\s*(import|from)\s+secrets\b`, "secrets generation"),
		rule(`^\s*(import|from)\s+hashlib\b`, "hashing"),
		rule(`^\s*(import|from)\s+(bcrypt|passlib)\b`, "password hashing"),
		rule(`^\s*(import|from)\s+subprocess\b`, "process execution"),
		rule(`^\s*from\s+django\.contrib\.auth`, "authentication"),
	},
	"rust": {
		rule(`^\s*use\s+(ring|rustls|openssl)::`, "cryptography"),
		rule(`^\s*use\s+(jsonwebtoken|argon2|bcrypt)`, "authentication"),
	},
}

func importLanguage(p string) string {
	switch strings.ToLower(filepath.Ext(p)) {
	case ".go":
		return "go"
	case ".js", ".jsx", ".mjs", ".cjs", ".ts", ".tsx":
		return "javascript"
	case ".py":
		return "python"
	case ".rs":
		return "rust"
	default:
		return ""
	}
}

// scanImports reports the first security-sensitive import in source, judged
// by the language of path.
func scanImports(p, source string) (bool, string) {
	rules := securityImports[importLanguage(p)]
	if len(rules) == 0 || source == "" {
		return false, ""
	}

	scanner := bufio.NewScanner(strings.NewReader(source))
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for n := 0; n < maxScanLines && scanner.Scan(); n++ {
		line := scanner.Text()
		for _, r := range rules {
			if r.re.MatchString(line) {
				return true, r.reason
			}
		}
	}
	return false, ""
}

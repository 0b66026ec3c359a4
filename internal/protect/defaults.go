// Package protect flags changes that touch sensitive areas of a project so
// they are never applied without an explicit human answer.
package protect

// Rules lists what counts as protected.
type Rules struct {
	// Patterns are globs over slash-separated paths; ** spans directories.
	Patterns []string `yaml:"patterns"`
	// Keywords match whole words in a path (split on non-alphanumerics).
	Keywords []string `yaml:"keywords"`
	// FileTypes are extensions including the dot.
	FileTypes []string `yaml:"file_types"`
}

// DefaultRules returns the built-in rules.
func DefaultRules() Rules {
	return Rules{
		Patterns: []string{
			"**/auth/**",
			"**/security/**",
			"**/migrations/**",
			"**/secrets/**",
			"**/credentials/**",
			"**/certs/**",
			"**/.ssh/**",
			"**/terraform/**",
			"**/k8s/**",
			".github/workflows/**",
		},
		Keywords: []string{
			"auth",
			"login",
			"password",
			"passwd",
			"token",
			"secret",
			"secrets",
			"credential",
			"credentials",
			"private",
			"oauth",
			"jwt",
			"session",
			"permission",
			"permissions",
			"rbac",
			"migration",
			"migrations",
		},
		FileTypes: []string{
			".sql",
			".tf",
			".pem",
			".key",
			".env",
			".p12",
			".pfx",
			".crt",
		},
	}
}

package version

import (
	_ "embed"
	"strings"
)

//go:embed COMMIT
var commit string

//go:embed VERSION
var number string

// Commit returns the git commit the binary was built from. The release build overwrites the COMMIT file.
func Commit() string {
	return strings.TrimSpace(commit)
}

func Number() string {
	return strings.TrimSpace(number)
}

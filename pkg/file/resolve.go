package file

import (
	"os"
	"path/filepath"
	"strings"
)

// Resolve maps a request path onto a file under root. It returns false
// when the path escapes root, does not exist, or is a directory.
func Resolve(root, requestPath string) (string, bool) {
	if root == "" {
		return "", false
	}

	rel := strings.TrimPrefix(filepath.Clean("/"+requestPath), "/")
	if rel == "" {
		return "", false
	}

	full := filepath.Join(root, rel)
	if !strings.HasPrefix(full, filepath.Clean(root)+string(filepath.Separator)) {
		return "", false
	}

	info, err := os.Stat(full)
	if err != nil || info.IsDir() {
		return "", false
	}
	return full, true
}

// HasExt reports whether the final path element carries a file
// extension. Extensionless paths are treated as client-side routes.
func HasExt(requestPath string) bool {
	return strings.Contains(filepath.Base(requestPath), ".")
}

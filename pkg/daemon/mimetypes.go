package daemon

import (
	"path/filepath"
	"strings"
)

// assetContentTypes maps release asset extensions to MIME types.
// Unknown extensions fall back to application/octet-stream.
var assetContentTypes = map[string]string{
	".exe":      "application/vnd.microsoft.portable-executable",
	".msi":      "application/x-msi",
	".dmg":      "application/x-apple-diskimage",
	".deb":      "application/vnd.debian.binary-package",
	".rpm":      "application/x-rpm",
	".appimage": "application/x-executable",
	".apk":      "application/vnd.android.package-archive",
	".zip":      "application/zip",
	".tar":      "application/x-tar",
	".gz":       "application/gzip",
}

func assetContentType(assetName string) string {
	ext := strings.ToLower(filepath.Ext(assetName))
	if ct, ok := assetContentTypes[ext]; ok {
		return ct
	}
	return "application/octet-stream"
}

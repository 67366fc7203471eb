package extension

import "strings"

// defaultIconName is used when the manifest does not declare an icon.
const defaultIconName = "favicon.ico"

// Icon is an extracted package icon.
type Icon struct {
	Name     string
	Content  []byte
	MIMEType string
}

// ExtractIcon tries the ordered candidate locations for the package
// icon and returns the first that exists, or nil. Extraction is best
// effort: a package without an icon is still valid.
func ExtractIcon(a *Archive, manifest *Manifest) *Icon {
	iconName := manifest.Icon
	if iconName == "" {
		iconName = defaultIconName
	}

	candidates := []string{
		iconName,
		internalDir + iconName,
		defaultIconName,
		internalDir + defaultIconName,
	}

	for _, path := range candidates {
		content, ok, err := a.File(path)
		if err != nil || !ok {
			continue
		}
		return &Icon{
			Name:     iconName,
			Content:  content,
			MIMEType: iconMIMEType(iconName),
		}
	}
	return nil
}

func iconMIMEType(name string) string {
	switch {
	case strings.HasSuffix(strings.ToLower(name), ".svg"):
		return "image/svg+xml"
	case strings.HasSuffix(strings.ToLower(name), ".png"):
		return "image/png"
	case strings.HasSuffix(strings.ToLower(name), ".jpg"),
		strings.HasSuffix(strings.ToLower(name), ".jpeg"):
		return "image/jpeg"
	case strings.HasSuffix(strings.ToLower(name), ".ico"):
		return "image/x-icon"
	case strings.HasSuffix(strings.ToLower(name), ".webp"):
		return "image/webp"
	default:
		return "image/png"
	}
}

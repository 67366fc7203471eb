// Package extension implements the verification pipeline for uploaded
// extension packages: archive unpacking, manifest validation, version
// monotonicity, public-key continuity, signature verification, and
// best-effort icon extraction.
package extension

import (
	"encoding/json"
	"fmt"
)

const (
	// PackageExt is the file extension an uploaded package must carry.
	PackageExt = ".xt"

	// internalDir is the fixed folder inside the archive holding the
	// manifest and related resources. The package format is consumed,
	// not owned, so these constants follow the producing SDK.
	internalDir = "haextension/"

	// ManifestPath is the fixed archive path of the manifest entry.
	ManifestPath = internalDir + "manifest.json"
)

// Manifest is the metadata document carried inside an extension package.
// It is untrusted input until the package signature has been verified.
type Manifest struct {
	Name        string `json:"name"`
	PublicKey   string `json:"publicKey"`
	Version     string `json:"version"`
	Description string `json:"description,omitempty"`
	Author      string `json:"author,omitempty"`
	Entry       string `json:"entry,omitempty"`
	Icon        string `json:"icon,omitempty"`
	Signature   string `json:"signature,omitempty"`
}

// ParseManifest decodes a manifest document and checks the required
// fields. Name, publicKey, and version must all be present.
func ParseManifest(data []byte) (*Manifest, error) {
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("manifest is not valid JSON: %w", err)
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

// Validate checks that the manifest carries all required fields.
func (m *Manifest) Validate() error {
	if m.Name == "" {
		return fmt.Errorf("manifest: name is required")
	}
	if m.PublicKey == "" {
		return fmt.Errorf("manifest: publicKey is required")
	}
	if m.Version == "" {
		return fmt.Errorf("manifest: version is required")
	}
	return nil
}

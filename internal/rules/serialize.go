package rules

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
)

// Document is the settings file consumed by the sandbox launcher.
type Document struct {
	Filesystem FilesystemSection `json:"filesystem"`
	Network    NetworkSection    `json:"network"`
}

// FilesystemSection holds the path rules. AllowRead is nil in deny-list mode
// and then omitted; an empty allow list is written as [].
type FilesystemSection struct {
	DenyRead   []string  `json:"denyRead"`
	AllowRead  *[]string `json:"allowRead,omitempty"`
	AllowWrite []string  `json:"allowWrite"`
	DenyWrite  []string  `json:"denyWrite"`
}

// NetworkSection holds the domain rules. DeniedDomains is always empty; the
// allow list is authoritative.
type NetworkSection struct {
	AllowedDomains []string `json:"allowedDomains"`
	DeniedDomains  []string `json:"deniedDomains"`
}

// Serializer renders AccessRules into settings documents. The output is a
// pure function of the rules, the self path and the home directory.
type Serializer struct {
	sensitive []string
}

// NewSerializer creates a Serializer whose sensitive entries are expanded
// against home.
func NewSerializer(home string) *Serializer {
	return &Serializer{sensitive: SensitivePaths(home)}
}

// Document builds the settings document. selfPath is always present in
// denyWrite and the sensitive entries are always present in denyRead,
// whatever r contains.
func (s *Serializer) Document(r AccessRules, selfPath string) Document {
	doc := Document{
		Filesystem: FilesystemSection{
			DenyRead:   canonical(append(slices.Clone(r.DenyRead), s.sensitive...)),
			AllowWrite: canonical(r.AllowWrite),
			DenyWrite:  canonical([]string{selfPath}),
		},
		Network: NetworkSection{
			AllowedDomains: canonical(r.AllowedDomains),
			DeniedDomains:  []string{},
		},
	}
	if r.AllowRead != nil {
		allow := canonical(r.AllowRead)
		doc.Filesystem.AllowRead = &allow
	}
	return doc
}

// Serialize returns the canonical JSON encoding of the settings document.
func (s *Serializer) Serialize(r AccessRules, selfPath string) ([]byte, error) {
	if selfPath == "" {
		return nil, errors.New("serialize settings: empty self path")
	}
	data, err := json.MarshalIndent(s.Document(r, selfPath), "", "  ")
	if err != nil {
		return nil, fmt.Errorf("serialize settings: %w", err)
	}
	return append(data, '\n'), nil
}

// Parse reads a settings document back into AccessRules and the denyWrite
// entries. Unknown fields are rejected.
func Parse(data []byte) (AccessRules, []string, error) {
	var doc Document
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&doc); err != nil {
		return AccessRules{}, nil, fmt.Errorf("parse settings: %w", err)
	}
	r := AccessRules{
		DenyRead:       doc.Filesystem.DenyRead,
		AllowWrite:     doc.Filesystem.AllowWrite,
		AllowedDomains: doc.Network.AllowedDomains,
	}
	if doc.Filesystem.AllowRead != nil {
		r.AllowRead = *doc.Filesystem.AllowRead
		if r.AllowRead == nil {
			// "allowRead": null
			r.AllowRead = []string{}
		}
	}
	return r, doc.Filesystem.DenyWrite, nil
}

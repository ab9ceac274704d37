package docker

import (
	"github.com/google/go-containerregistry/pkg/name"
)

// ReferenceParser validates tagged image references with go-containerregistry.
type ReferenceParser struct{}

// NewReferenceParser creates a new ReferenceParser.
func NewReferenceParser() *ReferenceParser {
	return &ReferenceParser{}
}

// Registry parses reference as a tagged image and returns its registry host.
// References without a registry resolve to Docker Hub.
func (p *ReferenceParser) Registry(reference string) (string, error) {
	tag, err := name.NewTag(reference)
	if err != nil {
		return "", err
	}
	return tag.Context().RegistryStr(), nil
}

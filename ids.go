package bpmn

import (
	"regexp"
	"strings"

	"github.com/google/uuid"
)

// ShortID returns the first eight hex digits of a random UUID.
func ShortID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
}

// NewID returns prefix + "_" + ShortID().
func NewID(prefix string) string {
	return prefix + "_" + ShortID()
}

var nonSlug = regexp.MustCompile(`[^a-z0-9]+`)

// Slug lowercases name and collapses every run of other characters into
// a single underscore.
func Slug(name string) string {
	return strings.Trim(nonSlug.ReplaceAllString(strings.ToLower(name), "_"), "_")
}

// ProcessKey derives a process ID from a display name. The result is a
// valid XML NCName.
func ProcessKey(name string) string {
	base := Slug(name)
	if base == "" || (base[0] >= '0' && base[0] <= '9') {
		base = "process_" + base
		base = strings.TrimSuffix(base, "_")
	}
	return base + "_" + ShortID()
}

func variantPrefix(v Variant) string {
	switch {
	case v == StartEvent:
		return "StartEvent"
	case v == EndEvent:
		return "EndEvent"
	case v.IsGateway():
		return "Gateway"
	default:
		return strings.ToUpper(string(v[:1])) + string(v[1:])
	}
}

func (d *Document) newNodeID(v Variant) string {
	for {
		id := NewID(variantPrefix(v))
		if _, taken := d.nodes[id]; !taken {
			return id
		}
	}
}

func (d *Document) newEdgeID() string {
	for {
		id := NewID("Flow")
		if _, taken := d.edges[id]; !taken {
			return id
		}
	}
}

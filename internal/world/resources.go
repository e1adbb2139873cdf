package world

import "strings"

// ResourceClass groups resource types by how demand reacts to income.
type ResourceClass uint8

const (
	ClassStandard  ResourceClass = iota // Demand scales linearly with income
	ClassNecessity                      // Sub-linear: bought regardless of wealth
	ClassLuxury                         // Super-linear: bought once rich
)

// String returns the tag used in configuration files.
func (c ResourceClass) String() string {
	switch c {
	case ClassNecessity:
		return "necessity"
	case ClassLuxury:
		return "luxury"
	default:
		return "standard"
	}
}

// ParseResourceClass maps a tag back to a class.
func ParseResourceClass(tag string) (ResourceClass, bool) {
	switch strings.ToLower(strings.TrimSpace(tag)) {
	case "necessity":
		return ClassNecessity, true
	case "luxury":
		return ClassLuxury, true
	case "standard", "":
		return ClassStandard, true
	default:
		return ClassStandard, false
	}
}

// DefaultResourceTypes is the resource list used when configuration names none.
var DefaultResourceTypes = []string{"Food", "Wood", "Stone", "Iron", "Tools", "Luxuries"}

var builtinClasses = map[string]ResourceClass{
	"food":     ClassNecessity,
	"water":    ClassNecessity,
	"wood":     ClassNecessity,
	"grain":    ClassNecessity,
	"fish":     ClassNecessity,
	"luxuries": ClassLuxury,
	"gold":     ClassLuxury,
	"gems":     ClassLuxury,
	"spices":   ClassLuxury,
	"silk":     ClassLuxury,
	"wine":     ClassLuxury,
}

// Classifier resolves resource types to classes. Explicit entries win over
// the built-in table; anything unknown is standard.
type Classifier map[string]ResourceClass

// ClassOf returns the class of a resource type.
func (c Classifier) ClassOf(resourceType string) ResourceClass {
	if cls, ok := c[resourceType]; ok {
		return cls
	}
	if cls, ok := builtinClasses[strings.ToLower(resourceType)]; ok {
		return cls
	}
	return ClassStandard
}

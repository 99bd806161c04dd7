package facade

import "context"

// Manifest is the consumed shape a manifest source returns (spec.md section
// 6: "Manifests expose requirements[], tags[], optional domain").
type Manifest struct {
	ID           string
	Requirements []RequirementSpec
	Tags         []string
	Domain       string
}

// RequirementSpec is one manifest requirement line, with optional
// criticality weighting used by the supply-tree builder.
type RequirementSpec struct {
	Text        string
	Criticality float64
}

// Facility is the consumed shape a facility source returns (spec.md
// section 6: "Facilities expose capabilities[], tags[], optional domain").
type Facility struct {
	ID           string
	Capabilities []string
	Tags         []string
	Domain       string
}

// FacilityFilter narrows ListFacilities queries.
type FacilityFilter struct {
	Domain string
	Tags   []string
}

// Source is the consumed Manifest/Facility provider (spec.md section 6).
type Source interface {
	GetManifest(ctx context.Context, id string) (Manifest, error)
	GetFacility(ctx context.Context, id string) (Facility, error)
	ListFacilities(ctx context.Context, filter FacilityFilter) ([]Facility, error)
}

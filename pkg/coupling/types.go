// Package coupling defines the data model for module coupling analysis:
// usage contexts, the strength/distance/volatility dimensions, the coupling
// graph, the balance algebra, and issue detection over it.
package coupling

import (
	"github.com/tether-analysis/tether/pkg/modpath"
)

// Strength describes how invasive a dependency is.
type Strength string

const (
	StrengthContract   Strength = "Contract"
	StrengthModel      Strength = "Model"
	StrengthFunctional Strength = "Functional"
	StrengthIntrusive  Strength = "Intrusive"
)

// Value returns the numeric strength in [0,1].
func (s Strength) Value() float64 {
	switch s {
	case StrengthContract:
		return 0.25
	case StrengthModel:
		return 0.4
	case StrengthFunctional:
		return 0.6
	case StrengthIntrusive:
		return 0.8
	default:
		return 0
	}
}

// Distance describes how far apart two modules sit in the hierarchy.
type Distance string

const (
	DistanceSameFunction    Distance = "SameFunction"
	DistanceSameModule      Distance = "SameModule"
	DistanceDifferentModule Distance = "DifferentModule"
	DistanceDifferentCrate  Distance = "DifferentCrate"
)

// Value returns the numeric distance in [0,1].
func (d Distance) Value() float64 {
	switch d {
	case DistanceSameFunction:
		return 0
	case DistanceSameModule:
		return 0.25
	case DistanceDifferentModule:
		return 0.6
	case DistanceDifferentCrate:
		return 1.0
	default:
		return 0
	}
}

// DistanceBetween derives the distance class from two module paths alone.
// Crossing crate roots is always DifferentCrate. Identical paths and sibling
// modules (same parent) are close; anything else within a crate is
// DifferentModule. SameFunction never applies to a module-keyed edge.
func DistanceBetween(src, tgt modpath.Path) Distance {
	if src.Crate() != tgt.Crate() {
		return DistanceDifferentCrate
	}
	if src.Equal(tgt) {
		return DistanceSameModule
	}
	if src.Len() == tgt.Len() && src.Parent().Equal(tgt.Parent()) {
		return DistanceSameModule
	}
	return DistanceDifferentModule
}

// Volatility classifies the expected change frequency of a module.
type Volatility string

const (
	VolatilityLow     Volatility = "Low"
	VolatilityMedium  Volatility = "Medium"
	VolatilityHigh    Volatility = "High"
	VolatilityUnknown Volatility = "Unknown"
)

// Value returns the numeric volatility in [0,1]. Unknown is neutral: it
// neither rewards nor penalizes balance.
func (v Volatility) Value() float64 {
	switch v {
	case VolatilityLow:
		return 0.2
	case VolatilityMedium:
		return 0.5
	case VolatilityHigh:
		return 0.8
	case VolatilityUnknown:
		return 0.5
	default:
		return 0.5
	}
}

// UsageContext is the closed enumeration of syntactic usage kinds.
type UsageContext string

const (
	ContextFieldAccess        UsageContext = "FieldAccess"
	ContextStructConstruction UsageContext = "StructConstruction"
	ContextInherentImplBlock  UsageContext = "InherentImplBlock"
	ContextMethodCall         UsageContext = "MethodCall"
	ContextFunctionCall       UsageContext = "FunctionCall"
	ContextFunctionParameter  UsageContext = "FunctionParameter"
	ContextReturnType         UsageContext = "ReturnType"
	ContextTypeParameter      UsageContext = "TypeParameter"
	ContextImport             UsageContext = "Import"
	ContextTraitBound         UsageContext = "TraitBound"
)

// StrengthOf maps a usage context to its coupling strength.
func StrengthOf(ctx UsageContext) Strength {
	switch ctx {
	case ContextFieldAccess, ContextStructConstruction, ContextInherentImplBlock:
		return StrengthIntrusive
	case ContextMethodCall, ContextFunctionCall, ContextFunctionParameter, ContextReturnType:
		return StrengthFunctional
	case ContextTypeParameter, ContextImport:
		return StrengthModel
	case ContextTraitBound:
		return StrengthContract
	default:
		return StrengthContract
	}
}

// Visibility of an item definition.
type Visibility string

const (
	VisibilityPublic  Visibility = "public"
	VisibilityPackage Visibility = "package-visible"
	VisibilityPrivate Visibility = "private"
)

// ItemKind classifies a named definition.
type ItemKind string

const (
	ItemFunction ItemKind = "function"
	ItemType     ItemKind = "type"
	ItemTrait    ItemKind = "trait"
	ItemImpl     ItemKind = "impl-block"
	ItemImport   ItemKind = "import"
)

// Location points at a source position.
type Location struct {
	File string `json:"file"`
	Line uint32 `json:"line"`
}

// Item is a named definition inside a module.
type Item struct {
	Name       string       `json:"name"`
	Kind       ItemKind     `json:"kind"`
	Visibility Visibility   `json:"visibility"`
	Module     modpath.Path `json:"module"`
	Location   Location     `json:"location"`
	ParamCount int          `json:"param_count,omitempty"`
}

// Usage is one syntactic occurrence of a symbol reference.
type Usage struct {
	SourceModule modpath.Path
	TargetPath   string
	Context      UsageContext
	Location     Location
}

// ModuleMetrics is the per-module metric bundle carried by graph nodes.
type ModuleMetrics struct {
	FnCount           int                `json:"fn_count"`
	TypeCount         int                `json:"type_count"`
	TraitImplCount    int                `json:"trait_impl_count"`
	InherentImplCount int                `json:"inherent_impl_count"`
	Visibility        map[Visibility]int `json:"visibility_histogram"`

	// Interface vs implementation signals feeding the depth ratio.
	PubFnCount     int `json:"pub_fn_count"`
	PubTypeCount   int `json:"pub_type_count"`
	TotalPubParams int `json:"total_pub_params"`
	PrivateFnCount int `json:"private_fn_count"`
}

// NewModuleMetrics returns an empty metrics bundle.
func NewModuleMetrics() ModuleMetrics {
	return ModuleMetrics{Visibility: make(map[Visibility]int)}
}

// AddItem folds one item definition into the bundle.
func (m *ModuleMetrics) AddItem(it Item) {
	m.Visibility[it.Visibility]++
	switch it.Kind {
	case ItemFunction:
		m.FnCount++
		if it.Visibility == VisibilityPublic {
			m.PubFnCount++
			m.TotalPubParams += it.ParamCount
		} else {
			m.PrivateFnCount++
		}
	case ItemType, ItemTrait:
		m.TypeCount++
		if it.Visibility == VisibilityPublic {
			m.PubTypeCount++
		}
	}
}

// InterfaceComplexity scores the module's public surface.
func (m ModuleMetrics) InterfaceComplexity() float64 {
	return float64(m.PubFnCount) + 0.5*float64(m.PubTypeCount) + 0.3*float64(m.TotalPubParams)
}

// ImplementationComplexity scores what the module hides.
func (m ModuleMetrics) ImplementationComplexity() float64 {
	return float64(m.PrivateFnCount) + 0.5*float64(m.TypeCount-m.PubTypeCount) +
		0.5*float64(m.TraitImplCount+m.InherentImplCount)
}

// DepthClass classifies module depth from the ratio of implementation to
// interface complexity. Modules with no public surface are Unknown.
type DepthClass string

const (
	DepthDeep     DepthClass = "deep"
	DepthModerate DepthClass = "moderate"
	DepthShallow  DepthClass = "shallow"
	DepthUnknown  DepthClass = "unknown"
)

// Depth returns the depth classification and ratio.
func (m ModuleMetrics) Depth() (DepthClass, float64) {
	iface := m.InterfaceComplexity()
	if iface < 0.01 {
		return DepthUnknown, 0
	}
	ratio := m.ImplementationComplexity() / iface
	switch {
	case ratio >= 5.0:
		return DepthDeep, ratio
	case ratio >= 2.0:
		return DepthModerate, ratio
	default:
		return DepthShallow, ratio
	}
}

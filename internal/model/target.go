package model

import (
	"fmt"
	"strings"
)

type TargetKind string

const (
	TargetClash     TargetKind = "clash"
	TargetClashR    TargetKind = "clashr"
	TargetSurge     TargetKind = "surge"
	TargetSurfboard TargetKind = "surfboard"
	TargetMellow    TargetKind = "mellow"
	TargetSSSub     TargetKind = "sssub"
	TargetSS        TargetKind = "ss"
	TargetSSR       TargetKind = "ssr"
	TargetV2Ray     TargetKind = "v2ray"
	TargetTrojan    TargetKind = "trojan"
	TargetMixed     TargetKind = "mixed"
	TargetQuan      TargetKind = "quan"
	TargetQuanX     TargetKind = "quanx"
	TargetLoon      TargetKind = "loon"
	TargetSSD       TargetKind = "ssd"
	TargetSingBox   TargetKind = "singbox"
)

// Family names a rule-base slot shared by sibling target variants.
type Family string

const (
	FamilyClash     Family = "clash"
	FamilySurge     Family = "surge"
	FamilySurfboard Family = "surfboard"
	FamilyMellow    Family = "mellow"
	FamilyQuan      Family = "quan"
	FamilyQuanX     Family = "quanx"
	FamilyLoon      Family = "loon"
	FamilySSSub     Family = "sssub"
	FamilySingBox   Family = "singbox"
)

const (
	DefaultSurgeVersion = 3
	surfboardVersion    = -3
)

// Target is one output variant. Version carries variant-specific data
// such as the Surge major version.
type Target struct {
	Kind    TargetKind
	Version int
}

func (t Target) String() string {
	if t.Kind == TargetSurge {
		return fmt.Sprintf("surge%d", t.Version)
	}
	return string(t.Kind)
}

// Family returns the rule-base family, or "" for list-only targets.
func (t Target) Family() Family {
	switch t.Kind {
	case TargetClash, TargetClashR:
		return FamilyClash
	case TargetSurge:
		return FamilySurge
	case TargetSurfboard:
		return FamilySurfboard
	case TargetMellow:
		return FamilyMellow
	case TargetQuan:
		return FamilyQuan
	case TargetQuanX:
		return FamilyQuanX
	case TargetLoon:
		return FamilyLoon
	case TargetSSSub:
		return FamilySSSub
	case TargetSingBox:
		return FamilySingBox
	default:
		return ""
	}
}

// FamilyTargets lists every variant that reads the family's rule base.
func FamilyTargets(f Family) []TargetKind {
	switch f {
	case FamilyClash:
		return []TargetKind{TargetClash, TargetClashR}
	case "":
		return nil
	default:
		return []TargetKind{TargetKind(f)}
	}
}

// ParseTarget resolves a request target name. ver is only read for surge;
// zero selects the default major version.
func ParseTarget(name string, ver int) (Target, error) {
	kind := TargetKind(strings.ToLower(strings.TrimSpace(name)))
	switch kind {
	case "auto", "":
		return Target{Kind: TargetClash}, nil
	case TargetSurge:
		if ver == 0 {
			ver = DefaultSurgeVersion
		}
		if ver < 2 || ver > 4 {
			return Target{}, fmt.Errorf("unsupported surge version %d", ver)
		}
		return Target{Kind: TargetSurge, Version: ver}, nil
	case TargetSurfboard:
		return Target{Kind: TargetSurfboard, Version: surfboardVersion}, nil
	case TargetClash, TargetClashR, TargetMellow, TargetSSSub, TargetSS, TargetSSR,
		TargetV2Ray, TargetTrojan, TargetMixed, TargetQuan, TargetQuanX, TargetLoon,
		TargetSSD, TargetSingBox:
		return Target{Kind: kind}, nil
	default:
		return Target{}, fmt.Errorf("unknown target %q", name)
	}
}

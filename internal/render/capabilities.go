package render

import "github.com/CrazyForks/subconverter-go/internal/model"

func typeSet(names ...string) map[string]struct{} {
	m := make(map[string]struct{}, len(names)+1)
	for _, n := range names {
		m[n] = struct{}{}
	}
	m["MATCH"] = struct{}{}
	return m
}

var commonRuleTypes = []string{"DOMAIN", "DOMAIN-SUFFIX", "DOMAIN-KEYWORD", "IP-CIDR", "GEOIP"}

// AllowedRuleTypes returns the rule TYPE allow-list of a target kind.
// Rules outside the list are dropped while rendering.
func AllowedRuleTypes(kind model.TargetKind) map[string]struct{} {
	switch kind {
	case model.TargetClash, model.TargetClashR:
		return typeSet(append(commonRuleTypes, "IP-CIDR6", "SRC-IP-CIDR", "DST-PORT", "SRC-PORT", "PROCESS-NAME")...)
	case model.TargetSurge:
		return typeSet(append(commonRuleTypes, "IP-CIDR6", "IP-ASN", "USER-AGENT", "URL-REGEX", "PROCESS-NAME", "DST-PORT", "SRC-IP-CIDR")...)
	case model.TargetSurfboard:
		return typeSet(append(commonRuleTypes, "IP-CIDR6", "PROCESS-NAME")...)
	case model.TargetQuanX:
		return typeSet(append(commonRuleTypes, "IP-CIDR6", "USER-AGENT")...)
	case model.TargetQuan:
		return typeSet(append(commonRuleTypes, "USER-AGENT")...)
	case model.TargetLoon:
		return typeSet(append(commonRuleTypes, "IP-CIDR6", "IP-ASN", "USER-AGENT", "URL-REGEX", "DST-PORT")...)
	case model.TargetMellow:
		return typeSet(append(commonRuleTypes, "PROCESS-NAME")...)
	case model.TargetSingBox:
		return typeSet(append(commonRuleTypes, "IP-CIDR6", "SRC-IP-CIDR", "DST-PORT", "SRC-PORT", "PROCESS-NAME")...)
	default:
		// nil means no extra restriction
		return nil
	}
}

func supports(types ...model.ProxyType) func(model.Proxy) bool {
	return func(p model.Proxy) bool {
		for _, t := range types {
			if p.Type == t {
				return true
			}
		}
		return false
	}
}

package httpapi

import (
	"strings"

	"github.com/CrazyForks/subconverter-go/internal/model"
)

const maxFileName = 200

// outputFileName validates a requested download name and appends the
// target's usual extension when name has none. An empty name disables
// the attachment header.
func outputFileName(name string, target model.Target) (string, error) {
	base := strings.TrimSpace(name)
	if base == "" {
		return "", nil
	}
	if strings.ContainsAny(base, "\r\n\x00\"") {
		return "", requestError("INVALID_ARGUMENT", "filename 含有非法控制字符", "")
	}
	if strings.Contains(base, "/") || strings.Contains(base, "\\") {
		return "", requestError("INVALID_ARGUMENT", "filename 不允许包含路径分隔符", "")
	}
	if len(base) > maxFileName {
		return "", requestError("INVALID_ARGUMENT", "filename 过长", "max=200 bytes")
	}
	if !hasExt(base) {
		base += defaultExt(target)
	}
	return base, nil
}

func hasExt(name string) bool {
	i := strings.LastIndexByte(name, '.')
	return i > 0 && i < len(name)-1
}

func defaultExt(target model.Target) string {
	switch target.Kind {
	case model.TargetClash, model.TargetClashR:
		return ".yaml"
	case model.TargetSurge, model.TargetSurfboard, model.TargetMellow, model.TargetQuan,
		model.TargetQuanX, model.TargetLoon:
		return ".conf"
	case model.TargetSSSub, model.TargetSingBox:
		return ".json"
	default:
		return ".txt"
	}
}

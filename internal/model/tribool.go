package model

// Tribool is a capability flag that may be left unset so the target
// renderer can apply its own default.
type Tribool int8

const (
	Unset Tribool = iota
	True
	False
)

func BoolOf(b bool) Tribool {
	if b {
		return True
	}
	return False
}

// ParseTribool accepts "true"/"1" and "false"/"0"; anything else is Unset.
func ParseTribool(s string) Tribool {
	switch s {
	case "true", "1":
		return True
	case "false", "0":
		return False
	default:
		return Unset
	}
}

func (t Tribool) IsSet() bool { return t != Unset }

func (t Tribool) Bool() bool { return t == True }

// Or returns t when it is set, otherwise fallback.
func (t Tribool) Or(fallback Tribool) Tribool {
	if t.IsSet() {
		return t
	}
	return fallback
}

func (t Tribool) String() string {
	switch t {
	case True:
		return "true"
	case False:
		return "false"
	default:
		return ""
	}
}

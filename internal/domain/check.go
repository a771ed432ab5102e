package domain

import "fmt"

// CheckKind identifies one of the three checks carried by a ProjectValidation.
type CheckKind int

const (
	CheckScam CheckKind = iota + 1
	CheckSanctions
	CheckAudit
)

// AllChecks lists every check kind in evaluation order.
var AllChecks = []CheckKind{CheckScam, CheckSanctions, CheckAudit}

func (k CheckKind) String() string {
	switch k {
	case CheckScam:
		return "scamCheck"
	case CheckSanctions:
		return "sanctionsCheck"
	case CheckAudit:
		return "auditCheck"
	default:
		return fmt.Sprintf("CheckKind(%d)", int(k))
	}
}

// Critical reports whether failing the check fails the overall gate.
func (k CheckKind) Critical() bool {
	return k == CheckScam || k == CheckSanctions
}

// ParseCheckKind maps a wire name such as "auditCheck" to its kind.
func ParseCheckKind(s string) (CheckKind, error) {
	for _, k := range AllChecks {
		if k.String() == s {
			return k, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownCheck, s)
}

// Result returns a pointer to the result for kind so callers can update it in place.
func (v *ProjectValidation) Result(kind CheckKind) (*ValidationResult, error) {
	switch kind {
	case CheckScam:
		return &v.ScamCheck, nil
	case CheckSanctions:
		return &v.SanctionsCheck, nil
	case CheckAudit:
		return &v.AuditCheck, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownCheck, kind)
	}
}

package topology

import (
	"fmt"
	"regexp"
	"strings"
)

// Role identifies which canonical project folder a directory plays.
type Role int

const (
	RoleMaskName Role = iota
	RoleRevision
	RoleDataprep
	RoleFinalMask
)

// Roles lists every role in classification order.
var Roles = []Role{RoleMaskName, RoleRevision, RoleDataprep, RoleFinalMask}

func (r Role) String() string {
	switch r {
	case RoleMaskName:
		return "mask_name"
	case RoleRevision:
		return "revision"
	case RoleDataprep:
		return "dataprep"
	case RoleFinalMask:
		return "final_mask"
	default:
		return fmt.Sprintf("role(%d)", int(r))
	}
}

// Label returns a human-readable role name for prompts and tables.
func (r Role) Label() string {
	switch r {
	case RoleMaskName:
		return "Mask Name"
	case RoleRevision:
		return "Revision"
	case RoleDataprep:
		return "Dataprep"
	case RoleFinalMask:
		return "Final Mask"
	default:
		return r.String()
	}
}

// PatternSource carries the raw expressions for each role, usually straight
// from configuration.
type PatternSource struct {
	MaskName  string
	Revision  string
	Dataprep  string
	FinalMask string
}

// Patterns holds one compiled prefix matcher per role.
type Patterns struct {
	byRole [4]*regexp.Regexp
	source PatternSource
}

// CompilePatterns compiles every role expression as a prefix matcher: a match
// must begin at the first character of the folder name but may stop short of
// its end.
func CompilePatterns(src PatternSource) (Patterns, error) {
	var p Patterns
	p.source = src
	raw := [4]string{src.MaskName, src.Revision, src.Dataprep, src.FinalMask}
	for _, role := range Roles {
		expr := strings.TrimSpace(raw[role])
		if expr == "" {
			return Patterns{}, fmt.Errorf("pattern %s: empty expression", role)
		}
		re, err := regexp.Compile("^(?:" + expr + ")")
		if err != nil {
			return Patterns{}, fmt.Errorf("pattern %s: %w", role, err)
		}
		p.byRole[role] = re
	}
	return p, nil
}

// MustCompilePatterns is CompilePatterns for static tables; it panics on error.
func MustCompilePatterns(src PatternSource) Patterns {
	p, err := CompilePatterns(src)
	if err != nil {
		panic(err)
	}
	return p
}

// Source returns the expressions the patterns were compiled from.
func (p Patterns) Source() PatternSource {
	return p.source
}

// Match reports whether name prefix-matches the pattern configured for role.
func (p Patterns) Match(role Role, name string) bool {
	if role < RoleMaskName || role > RoleFinalMask {
		return false
	}
	re := p.byRole[role]
	if re == nil {
		return false
	}
	return re.MatchString(name)
}

// Classify returns the first role, in classification order, whose pattern
// prefix-matches name. The boolean is false when no role matches.
func Classify(name string, patterns Patterns) (Role, bool) {
	for _, role := range Roles {
		if patterns.Match(role, name) {
			return role, true
		}
	}
	return 0, false
}

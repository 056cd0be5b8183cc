package naming

import (
	"fmt"
	"regexp"
	"strings"
)

const acronymMaxLength = 32

// acronymPattern keeps acronyms safe as git branch names and directory names.
var acronymPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_-]*$`)

// ValidateAcronym checks that a workspace acronym can key a branch and a
// local working copy.
func ValidateAcronym(acronym string) error {
	if acronym == "" {
		return fmt.Errorf("workspace acronym must not be empty")
	}
	if len(acronym) > acronymMaxLength {
		return fmt.Errorf("workspace acronym exceeds %d characters", acronymMaxLength)
	}
	if !acronymPattern.MatchString(acronym) {
		return fmt.Errorf("invalid workspace acronym %q: must match %s", acronym, acronymPattern.String())
	}
	if strings.EqualFold(acronym, "HEAD") {
		return fmt.Errorf("invalid workspace acronym %q: reserved by git", acronym)
	}
	return nil
}

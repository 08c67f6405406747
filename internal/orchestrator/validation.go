package orchestrator

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	// refNameRegex matches the characters allowed in branch and tag names
	refNameRegex = regexp.MustCompile(`^[a-zA-Z0-9._/@+-]+$`)
)

// ValidateBranchName validates a git branch name.
func ValidateBranchName(branch string) error {
	if branch == "" {
		return fmt.Errorf("branch name cannot be empty")
	}
	return validateRefName("branch", branch)
}

// ValidateTagName validates a release tag before it is created.
func ValidateTagName(tag string) error {
	if tag == "" {
		return fmt.Errorf("tag name cannot be empty")
	}
	return validateRefName("tag", tag)
}

func validateRefName(kind, name string) error {
	if len(name) > 255 {
		return fmt.Errorf("%s name too long: %d characters (max: 255)", kind, len(name))
	}
	if strings.HasPrefix(name, "/") || strings.HasSuffix(name, "/") {
		return fmt.Errorf("%s name cannot start or end with slash: %s", kind, name)
	}
	if strings.HasPrefix(name, "-") {
		return fmt.Errorf("%s name cannot start with a dash: %s", kind, name)
	}
	if strings.Contains(name, "..") || strings.Contains(name, "@{") {
		return fmt.Errorf("%s name contains a forbidden sequence: %s", kind, name)
	}
	if strings.HasSuffix(name, ".lock") {
		return fmt.Errorf("%s name cannot end with .lock: %s", kind, name)
	}
	if !refNameRegex.MatchString(name) {
		return fmt.Errorf("invalid %s name format: %s", kind, name)
	}
	return nil
}

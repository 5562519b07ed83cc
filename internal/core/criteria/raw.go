package criteria

import (
	"regexp"
	"strings"

	perr "github.com/BlueFrogAnalytics/SamBot/internal/platform/errors"
)

// forbiddenWord matches statement keywords a predicate fragment has no
// business containing. Deliberately coarse: the word inside a quoted
// literal trips it too; authors who need such words in data can use a
// declarative rule instead
var forbiddenWord = regexp.MustCompile(`(?i)\b(insert|update|delete|merge|drop|alter|create|truncate|grant|revoke|copy|vacuum|call|do|execute|prepare|deallocate|listen|notify|lock|set|reset|begin|commit|rollback|savepoint)\b`)

// ValidateRaw screens an author-written WHERE fragment: one statement, no
// comments, no data-modifying or session keywords. It is a tripwire, not a
// parser; authors own correctness beyond this
func ValidateRaw(fragment string) error {
	s := strings.TrimSpace(fragment)
	if s == "" {
		return perr.RuleCompilef("empty predicate")
	}
	if strings.ContainsRune(s, ';') {
		return perr.RuleCompilef("predicate must be a single statement fragment")
	}
	if strings.Contains(s, "--") || strings.Contains(s, "/*") {
		return perr.RuleCompilef("predicate must not contain comments")
	}
	if m := forbiddenWord.FindString(s); m != "" {
		return perr.RuleCompilef("predicate must not contain %q", strings.ToLower(m))
	}
	return nil
}

package safety

import (
	"regexp"
	"strings"

	"github.com/xwb1989/sqlparser"
)

// DefaultMaxLimit is the row ceiling injected into a probe that omits its
// own LIMIT clause.
const DefaultMaxLimit = 10000

var identifierPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(?:\.[A-Za-z_][A-Za-z0-9_]*)*$`)

var limitTail = regexp.MustCompile(`(?i)\blimit\s+\d+`)

// Validator admits only read-only, single-statement SELECT probes, up to
// a configured row ceiling, and sanitizes bare identifiers used when
// building dynamic FROM clauses.
type Validator struct {
	MaxLimit int
}

// NewValidator returns a Validator that injects LIMIT maxLimit into
// probes that omit their own limit clause.
func NewValidator(maxLimit int) *Validator {
	if maxLimit <= 0 {
		maxLimit = DefaultMaxLimit
	}
	return &Validator{MaxLimit: maxLimit}
}

// ValidateQuery admits sql iff it is non-empty, a single statement, and a
// SELECT (optionally preceded by WITH common table expressions). It
// returns the query with a LIMIT clause injected if one was missing, or
// a *QueryValidationError describing why the query was rejected.
func (v *Validator) ValidateQuery(sql string) (string, error) {
	trimmed := strings.TrimSpace(sql)
	if trimmed == "" {
		return "", newValidationError(KindEmpty, "query is empty")
	}

	pieces, err := sqlparser.SplitStatementToPieces(trimmed)
	if err != nil {
		return "", newValidationError(KindParseError, "%v", err)
	}

	nonEmpty := make([]string, 0, len(pieces))
	for _, p := range pieces {
		if strings.TrimSpace(p) != "" {
			nonEmpty = append(nonEmpty, strings.TrimSpace(p))
		}
	}
	if len(nonEmpty) == 0 {
		return "", newValidationError(KindEmpty, "query is empty")
	}
	if len(nonEmpty) > 1 {
		return "", newValidationError(KindNotSelect, "multiple statements are not permitted")
	}

	statement := nonEmpty[0]
	statement = strings.TrimSuffix(statement, ";")

	isCTE, cteRemainder := splitLeadingCTE(statement)
	parseTarget := statement
	if isCTE {
		parseTarget = cteRemainder
	}

	stmt, parseErr := sqlparser.Parse(parseTarget)
	if parseErr != nil {
		return "", newValidationError(KindParseError, "%v", parseErr)
	}

	selectStmt, ok := stmt.(*sqlparser.Select)
	if !ok {
		return "", newValidationError(KindNotSelect, "statement is not a SELECT")
	}

	hasLimit := selectStmt.Limit != nil || limitTail.MatchString(statement)
	if hasLimit {
		return statement, nil
	}

	return addLimit(statement, v.MaxLimit), nil
}

// addLimit appends a LIMIT clause to statement.
func addLimit(statement string, maxLimit int) string {
	return strings.TrimRight(statement, " \t\n") + " LIMIT " + itoaPositive(maxLimit)
}

func itoaPositive(n int) string {
	if n == 0 {
		return "0"
	}
	digits := make([]byte, 0, 8)
	for n > 0 {
		digits = append([]byte{byte('0' + n%10)}, digits...)
		n /= 10
	}
	return string(digits)
}

// splitLeadingCTE detects a leading WITH clause and returns the trailing
// SELECT with the CTE definitions stripped, by scanning for balanced
// parentheses rather than a blind string search — the bundled SQL
// parser predates CTE support, so this lets the final SELECT still be
// verified by a real parse.
func splitLeadingCTE(statement string) (bool, string) {
	trimmed := strings.TrimSpace(statement)
	lower := strings.ToLower(trimmed)
	if !strings.HasPrefix(lower, "with ") && !strings.HasPrefix(lower, "with\t") {
		return false, ""
	}

	depth := 0
	for i := 0; i < len(trimmed); i++ {
		switch trimmed[i] {
		case '(':
			depth++
		case ')':
			depth--
		}
		if depth == 0 && i > 4 {
			rest := strings.TrimSpace(trimmed[i+1:])
			lowerRest := strings.ToLower(rest)
			if strings.HasPrefix(lowerRest, "select") {
				return true, rest
			}
			if strings.HasPrefix(lowerRest, ",") {
				continue
			}
		}
	}

	return false, ""
}

// SanitizeIdentifier admits only dotted identifier chains made of
// letters, digits, and underscores, rejecting anything else — used when
// building dynamic FROM clauses for correlation probes.
func (v *Validator) SanitizeIdentifier(name string) (string, error) {
	if !identifierPattern.MatchString(name) {
		return "", newValidationError(KindInvalidIdentifier, "identifier %q is not a simple dotted name", name)
	}
	return name, nil
}

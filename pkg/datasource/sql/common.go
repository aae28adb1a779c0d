package sql

import (
	"regexp"

	"github.com/jordigilh/investigator/pkg/datasource"
)

var tableIdentPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(?:\.[A-Za-z_][A-Za-z0-9_]*)*$`)

// sanitizeTable admits only a dotted identifier chain before it is spliced
// into a dynamically built FROM/column clause, rejecting anything a SQL
// injection attempt might carry (semicolons, comments, keywords).
func sanitizeTable(name string) (string, error) {
	if !tableIdentPattern.MatchString(name) {
		return "", datasource.NewAdapterError(datasource.CodeInvalidConfig, "invalid identifier: "+name, nil)
	}
	return name, nil
}

package core

import "strings"

type DBOrdering struct {
	Field     string
	Ascending bool
}

func (ord DBOrdering) String() string {
	direction := "DESC"
	if ord.Ascending {
		direction = "ASC"
	}
	return ord.Field + " " + direction
}

// ParseOrderings parses a comma-separated list of fields, "-" prefixed for descending order
// (e.g. "-percentage,created_at"). Fields missing from allowed are dropped.
func ParseOrderings(s string, allowed ...string) []DBOrdering {
	var ords []DBOrdering
	for _, field := range strings.Split(s, ",") {
		field = strings.TrimSpace(field)
		descending := strings.HasPrefix(field, "-")
		if descending {
			field = field[1:] // drop "-"
		}
		if field == "" || !contains(allowed, field) {
			continue
		}
		ords = append(ords, DBOrdering{Field: field, Ascending: !descending})
	}
	return ords
}

// OrderBy renders orderings as an SQL ORDER BY list.
func OrderBy(ords []DBOrdering) string {
	parts := make([]string, 0, len(ords))
	for _, ord := range ords {
		parts = append(parts, ord.String())
	}
	return strings.Join(parts, ", ")
}

func contains(values []string, v string) bool {
	for _, val := range values {
		if val == v {
			return true
		}
	}
	return false
}

package postgres

import "github.com/ideadesk/ideadesk/internal/domain"

// jsonStrings normalizes a nil slice to an empty one so jsonb columns store
// '[]' rather than 'null'. pgx encodes the slice with the JSON codec because
// the server reports the parameter as jsonb.
func jsonStrings(v []string) []string {
	if v == nil {
		return []string{}
	}
	return v
}

// jsonThemeTickers is the jsonb equivalent for theme constituent lists.
func jsonThemeTickers(v []domain.ThemeTicker) []domain.ThemeTicker {
	if v == nil {
		return []domain.ThemeTicker{}
	}
	return v
}

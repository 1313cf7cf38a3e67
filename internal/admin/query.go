package admin

import (
	"strings"
	"time"
)

// This file builds the WHERE/ORDER BY fragments for event searches. Every
// filter value becomes a bound parameter; the only strings spliced into
// SQL are column names from the whitelists below, never user input.

// defaultPageLength is used when the request omits or mangles Length.
const defaultPageLength = 20

// maxPageLength caps a single page so a hostile Length can't dump the table.
const maxPageLength = 500

// searchColumns are the textual columns free-text search matches against.
var searchColumns = []string{
	"actor_name",
	"actor_roles",
	"actor_ip",
	"actor_location",
	"actor_agent",
	"event_type",
	"object_type",
	"object_subtype",
	"object_name",
}

// sortColumns whitelists requestable sort keys to real column identifiers.
var sortColumns = map[string]string{
	"id":         "id",
	"when":       "occurred_at",
	"actor":      "actor_name",
	"event_type": "event_type",
	"object":     "object_name",
}

// applyDefaults normalizes malformed paging/sort input in place. Bad input
// degrades, it never fails a request.
func (f *Filter) applyDefaults() {
	if f.Start < 0 {
		f.Start = 0
	}
	if f.Length <= 0 {
		f.Length = defaultPageLength
	}
	if f.Length > maxPageLength {
		f.Length = maxPageLength
	}
	if _, ok := sortColumns[f.SortColumn]; !ok {
		f.SortColumn = "when"
	}
	switch strings.ToLower(f.SortDir) {
	case "asc", "desc":
		f.SortDir = strings.ToLower(f.SortDir)
	default:
		f.SortDir = "desc"
	}
}

// whereClause builds the filter predicate and its bound arguments. Returns
// an empty clause when no filter is active.
func whereClause(f Filter, loc *time.Location) (string, []any) {
	var preds []string
	var args []any

	if f.Search != "" {
		like := "%" + escapeLike(f.Search) + "%"
		var cols []string
		for _, col := range searchColumns {
			cols = append(cols, col+" LIKE ?")
			args = append(args, like)
		}
		preds = append(preds, "("+strings.Join(cols, " OR ")+")")
	}

	if pred, typeArgs := objectTypePredicate(f); pred != "" {
		preds = append(preds, pred)
		args = append(args, typeArgs...)
	}

	// Date range is inclusive of the start day and of the end day; the
	// end-of-day boundary is handled by advancing one day and using <.
	if from, err := time.ParseInLocation("2006-01-02", f.DateFrom, loc); err == nil && f.DateFrom != "" {
		preds = append(preds, "occurred_at >= ?")
		args = append(args, from)
	}
	if to, err := time.ParseInLocation("2006-01-02", f.DateTo, loc); err == nil && f.DateTo != "" {
		preds = append(preds, "occurred_at < ?")
		args = append(args, to.AddDate(0, 0, 1))
	}

	if f.EventType != "" {
		preds = append(preds, "event_type = ?")
		args = append(args, f.EventType)
	}

	if f.UserID > 0 {
		preds = append(preds, "actor_id = ?")
		args = append(args, f.UserID)
	}

	// actor_roles is a comma-joined set, so a role matches as the whole
	// value or as a delimited member.
	if f.Role != "" {
		preds = append(preds, "(actor_roles = ? OR actor_roles LIKE ? OR actor_roles LIKE ? OR actor_roles LIKE ?)")
		role := escapeLike(f.Role)
		args = append(args, f.Role, role+",%", "%,"+role, "%,"+role+",%")
	}

	if len(preds) == 0 {
		return "", nil
	}
	return "WHERE " + strings.Join(preds, " AND "), args
}

// objectTypePredicate handles the object-type set with its subtype
// special cases: a selected "post" type narrowed to one post subtype (and
// symmetrically "term" to one taxonomy) splits into
// (type AND subtype) OR remaining-types. An explicitly empty selection
// matches only typeless events -- absence of selection must not silently
// match everything.
func objectTypePredicate(f Filter) (string, []any) {
	if f.ObjectTypes == nil {
		return "", nil
	}

	selected := *f.ObjectTypes
	if len(selected) == 0 {
		return "object_type IS NULL", nil
	}

	var parts []string
	var args []any
	var plain []string

	for _, t := range selected {
		switch {
		case t == "post" && f.PostType != "":
			parts = append(parts, "(object_type = ? AND object_subtype = ?)")
			args = append(args, "post", f.PostType)
		case t == "term" && f.Taxonomy != "":
			parts = append(parts, "(object_type = ? AND object_subtype = ?)")
			args = append(args, "term", f.Taxonomy)
		default:
			plain = append(plain, t)
		}
	}

	if len(plain) > 0 {
		placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(plain)), ", ")
		parts = append(parts, "object_type IN ("+placeholders+")")
		for _, t := range plain {
			args = append(args, t)
		}
	}

	if len(parts) == 1 {
		return parts[0], args
	}
	return "(" + strings.Join(parts, " OR ") + ")", args
}

// orderClause builds the ORDER BY from the whitelisted sort column, always
// appending the primary key as a final tiebreaker so pagination is stable
// across requests with non-unique sort keys. It validates its own input
// rather than trusting the caller to have run applyDefaults: only whitelist
// identifiers ever reach the SQL string.
func orderClause(f Filter) string {
	col, ok := sortColumns[f.SortColumn]
	if !ok {
		col = "occurred_at"
	}
	dir := "DESC"
	if strings.EqualFold(f.SortDir, "asc") {
		dir = "ASC"
	}
	clause := "ORDER BY " + col + " " + dir
	if col != "id" {
		clause += ", id " + dir
	}
	return clause
}

// escapeLike escapes the LIKE metacharacters in user input so a literal
// substring match stays literal.
func escapeLike(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, "%", `\%`)
	s = strings.ReplaceAll(s, "_", `\_`)
	return s
}

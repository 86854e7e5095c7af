package compiler

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/roach88/byname/internal/query"
)

const (
	connAnd = "And"
	connOr  = "Or"
)

type nameToken struct {
	text       string
	connective bool
}

// criteriaOf returns the part of name after the first "By" that follows the
// operation prefix. ok is false when the name has no criteria at all.
func criteriaOf(name string, op Operation) (string, bool) {
	rest := name[len(op):]
	idx := strings.Index(rest, "By")
	if idx < 0 {
		return "", false
	}
	return rest[idx+len("By"):], true
}

// tokenize splits criteria on the connectives And/Or. A connective only
// counts at a word boundary: not at the start, and followed by an
// upper-case letter or digit, so "ByOrderId" is one field token.
func tokenize(criteria string) []nameToken {
	var (
		tokens []nameToken
		start  int
	)
	i := 1
	for i < len(criteria) {
		conn := connectiveAt(criteria, i)
		if conn == "" {
			i++
			continue
		}
		tokens = append(tokens,
			nameToken{text: criteria[start:i]},
			nameToken{text: conn, connective: true})
		start = i + len(conn)
		i = start + 1
	}
	return append(tokens, nameToken{text: criteria[start:]})
}

func connectiveAt(s string, i int) string {
	for _, conn := range []string{connAnd, connOr} {
		if strings.HasPrefix(s[i:], conn) && startsWord(s[i+len(conn):]) {
			return conn
		}
	}
	return ""
}

func startsWord(s string) bool {
	r, _ := utf8.DecodeRuneInString(s)
	return r != utf8.RuneError && (unicode.IsUpper(r) || unicode.IsDigit(r))
}

// compileCriteria turns the name criteria into a query.
//
// Grouping is strictly left to right. Consecutive terms joined by the same
// connective accumulate; when the connective changes, everything
// accumulated so far collapses into one And/Or and becomes the first term
// of the next group. So NameOrAgeAndCity is and(or(Name, Age), City) and
// NameAndAgeOrCity is or(and(Name, Age), City). A connective switch after a
// single term only changes the pending connective.
func compileCriteria(m Method, op Operation) (query.Query, error) {
	criteria, ok := criteriaOf(m.Name, op)
	if !ok || criteria == "" {
		if len(m.Params) != 0 {
			return nil, newError(ErrCodeParamCount, m.Name,
				"the name declares no criteria, so the method must take no parameters, but it has %d", len(m.Params))
		}
		return query.True{}, nil
	}

	var (
		pending = connAnd
		terms   []query.Query
		next    int
	)
	for _, tok := range tokenize(criteria) {
		if tok.connective {
			switch {
			case tok.text == pending:
			case len(terms) <= 1:
				pending = tok.text
			default:
				terms = []query.Query{group(pending, terms)}
				pending = tok.text
			}
			continue
		}
		if next >= len(m.Params) {
			// Keep counting so the error reports the full expectation.
			next++
			continue
		}
		path := fieldName(tok.text)
		if p := m.Params[next].Path; p != "" {
			path = p
		}
		terms = append(terms, query.FieldEq(path, query.Param(next)))
		next++
	}

	if next != len(m.Params) {
		return nil, newError(ErrCodeParamCount, m.Name,
			"the query derived from the name expects %d parameter(s), but the method has %d", next, len(m.Params))
	}
	if len(terms) == 1 {
		return terms[0], nil
	}
	return group(pending, terms), nil
}

// fieldName turns a name token into a document field: the first rune is
// lowered unless the token starts with an acronym, so Brand is brand and
// URL stays URL.
func fieldName(tok string) string {
	r, size := utf8.DecodeRuneInString(tok)
	if next, _ := utf8.DecodeRuneInString(tok[size:]); unicode.IsUpper(r) && unicode.IsUpper(next) {
		return tok
	}
	return lowerFirst(tok)
}

func group(conn string, terms []query.Query) query.Query {
	filters := append([]query.Query(nil), terms...)
	if conn == connOr {
		return query.Or{Filters: filters}
	}
	return query.And{Filters: filters}
}

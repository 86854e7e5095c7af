package compiler

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Operation is one of the four persistence operations a repository method
// can perform. The value doubles as the method-name prefix.
type Operation string

const (
	FindAll        Operation = "findAll"
	FindOne        Operation = "findOne"
	InsertOrUpdate Operation = "insertOrUpdate"
	Remove         Operation = "remove"
)

// Operations lists every operation in prefix-matching order.
var Operations = []Operation{FindAll, FindOne, InsertOrUpdate, Remove}

// OperationOf detects the operation from a method name. The first rune is
// compared case-insensitively so exported Go names (FindAllCars) work.
func OperationOf(method string) (Operation, bool) {
	name := lowerFirst(method)
	for _, op := range Operations {
		if strings.HasPrefix(name, string(op)) {
			return op, true
		}
	}
	return "", false
}

func lowerFirst(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError || unicode.IsLower(r) {
		return s
	}
	return string(unicode.ToLower(r)) + s[size:]
}

package compiler

import (
	"regexp"
	"strings"
)

// EntityPattern is the naming convention a method must follow for its
// entity to be detected from the name.
const EntityPattern = "^(findAll|findOne|insertOrUpdate|remove)<Entity>(s|es)?(By[a-zA-Z0-9]+)?$"

// MatchEntity picks the entity a method operates on from its name.
// A trailing "y" is read as "i" on both sides, so LogbookEntry matches
// findAllLogbookEntries as well as insertOrUpdateLogbookEntry.
// Exactly one entity must match.
func MatchEntity(method string, entities []string) (string, error) {
	name := singular(lowerFirst(method))

	var matches []string
	for _, entity := range entities {
		re := regexp.MustCompile(strings.Replace(EntityPattern, "<Entity>", regexp.QuoteMeta(singular(entity)), 1))
		if re.MatchString(name) {
			matches = append(matches, entity)
		}
	}

	switch len(matches) {
	case 1:
		return matches[0], nil
	case 0:
		return "", newError(ErrCodeEntity, method,
			"cannot detect entity, the name must follow %s with <Entity> one of %v, or declare the entity explicitly",
			EntityPattern, entities)
	default:
		return "", newError(ErrCodeEntity, method,
			"name matches several entities %v, declare the entity explicitly", matches)
	}
}

func singular(s string) string {
	if strings.HasSuffix(s, "y") {
		return s[:len(s)-1] + "i"
	}
	return s
}

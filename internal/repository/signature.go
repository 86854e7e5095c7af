package repository

import (
	"context"
	"fmt"
	"reflect"

	"github.com/roach88/byname/internal/compiler"
	"github.com/roach88/byname/internal/future"
)

var (
	contextType = reflect.TypeFor[context.Context]()
	errorType   = reflect.TypeFor[error]()
	boolType    = reflect.TypeFor[bool]()
	unitType    = reflect.TypeFor[struct{}]()
)

// signature is the checked shape of a repository func field.
//
//	findAll         ([]T, error)        or *future.Future[[]T]
//	findOne         (T, bool, error)    or *future.Future[*T]
//	insertOrUpdate  error               or *future.Future[struct{}]
//	remove          error               or *future.Future[struct{}]
//
// A leading context.Context parameter is optional and is not a query
// parameter.
type signature struct {
	fn     reflect.Type
	hasCtx bool
	params []reflect.Type
	async  bool
	// result is T for the find operations.
	result reflect.Type
}

func (s *signature) paramOffset() int {
	if s.hasCtx {
		return 1
	}
	return 0
}

func analyze(ft reflect.Type, op compiler.Operation, domain reflect.Type) (*signature, error) {
	if ft.Kind() != reflect.Func {
		return nil, fmt.Errorf("%s is not a function", ft)
	}
	if ft.IsVariadic() {
		return nil, fmt.Errorf("variadic functions cannot be bound")
	}
	s := &signature{fn: ft}
	for i := 0; i < ft.NumIn(); i++ {
		if i == 0 && ft.In(0) == contextType {
			s.hasCtx = true
			continue
		}
		s.params = append(s.params, ft.In(i))
	}

	var err error
	switch op {
	case compiler.FindAll:
		err = s.findAll(domain)
	case compiler.FindOne:
		err = s.findOne(domain)
	case compiler.InsertOrUpdate:
		if len(s.params) == 1 && s.params[0] != domain {
			return nil, fmt.Errorf("insertOrUpdate parameter must be %s, got %s", domain, s.params[0])
		}
		err = s.unit()
	case compiler.Remove:
		err = s.unit()
	}
	if err != nil {
		return nil, fmt.Errorf("%s method %s: %w", op, ft, err)
	}
	return s, nil
}

func (s *signature) findAll(domain reflect.Type) error {
	ft := s.fn
	switch {
	case ft.NumOut() == 2 && ft.Out(0).Kind() == reflect.Slice && ft.Out(1) == errorType:
		s.result = ft.Out(0).Elem()
	case ft.NumOut() == 1:
		elem, ok := future.IsFuture(ft.Out(0))
		if !ok || elem.Kind() != reflect.Slice {
			return fmt.Errorf("must return ([]%s, error) or *future.Future[[]%s]", domain, domain)
		}
		s.async = true
		s.result = elem.Elem()
	default:
		return fmt.Errorf("must return ([]%s, error) or *future.Future[[]%s]", domain, domain)
	}
	return checkResult(s.result, domain)
}

func (s *signature) findOne(domain reflect.Type) error {
	ft := s.fn
	switch {
	case ft.NumOut() == 3 && ft.Out(1) == boolType && ft.Out(2) == errorType:
		s.result = ft.Out(0)
	case ft.NumOut() == 1:
		elem, ok := future.IsFuture(ft.Out(0))
		if !ok || elem.Kind() != reflect.Pointer {
			return fmt.Errorf("must return (%s, bool, error) or *future.Future[*%s]", domain, domain)
		}
		s.async = true
		s.result = elem.Elem()
	default:
		return fmt.Errorf("must return (%s, bool, error) or *future.Future[*%s]", domain, domain)
	}
	return checkResult(s.result, domain)
}

func (s *signature) unit() error {
	ft := s.fn
	switch {
	case ft.NumOut() == 1 && ft.Out(0) == errorType:
		return nil
	case ft.NumOut() == 1:
		if elem, ok := future.IsFuture(ft.Out(0)); ok && elem == unitType {
			s.async = true
			return nil
		}
	}
	return fmt.Errorf("must return error or *future.Future[struct{}]")
}

func checkResult(result, domain reflect.Type) error {
	if !domain.AssignableTo(result) {
		return fmt.Errorf("result type %s cannot hold %s", result, domain)
	}
	return nil
}

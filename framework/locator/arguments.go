package locator

import (
	"github.com/samber/lo"
)

// ResolutionArgument is a value passed along with a resolution request.
// Only ConstructorParameter changes what gets built; any other kind is
// ignored by the locator.
type ResolutionArgument interface {
	ArgumentKind() string
}

// ConstructorParameter overrides the constructor parameter called Name.
type ConstructorParameter struct {
	Name  string
	Value any
}

func (ConstructorParameter) ArgumentKind() string { return "constructor-parameter" }

// Param is shorthand for ConstructorParameter{Name: name, Value: value}.
func Param(name string, value any) ConstructorParameter {
	return ConstructorParameter{Name: name, Value: value}
}

// Hint is an opaque resolution argument. Kernels behind the locator never
// see it.
type Hint struct {
	Key   string
	Value any
}

func (Hint) ArgumentKind() string { return "hint" }

// constructorArgs keeps the constructor parameters of args as a name → value
// map. A later parameter with the same name wins.
func constructorArgs(args []ResolutionArgument) map[string]any {
	params := lo.FilterMap(args, func(a ResolutionArgument, _ int) (ConstructorParameter, bool) {
		switch p := a.(type) {
		case ConstructorParameter:
			return p, true
		case *ConstructorParameter:
			if p != nil {
				return *p, true
			}
		}
		return ConstructorParameter{}, false
	})

	out := make(map[string]any, len(params))
	for _, p := range params {
		out[p.Name] = p.Value
	}
	return out
}

package locator

import (
	"reflect"

	"github.com/km-arc/go-locator/framework/kernel"
)

// factoryCreateMethod is the method FactorySupportFacility calls on a holder.
const factoryCreateMethod = "Create"

// factoryHolder carries a producer registered through RegisterFactoryMethod.
// The kernel resolves it by name and calls Create.
type factoryHolder struct {
	produce func() any
}

func (h *factoryHolder) Create() any {
	return h.produce()
}

var factoryHolderType = reflect.TypeOf((*factoryHolder)(nil))

// factoryHolderName is the component name of the holder for service t.
func factoryHolderName(t reflect.Type) string {
	return kernel.TypeKey(factoryHolderType) + "[" + qualifiedName(t) + "]"
}

func factoryConfiguration(holder string) []kernel.Attribute {
	return []kernel.Attribute{
		kernel.Attrib(kernel.FactoryIDAttribute).Eq(holder),
		kernel.Attrib(kernel.FactoryCreateAttribute).Eq(factoryCreateMethod),
	}
}

// qualifiedName spells out pointers and the package path so two types that
// print alike in different packages get different names.
func qualifiedName(t reflect.Type) string {
	prefix := ""
	for t.Kind() == reflect.Pointer {
		prefix += "*"
		t = t.Elem()
	}
	return prefix + kernel.TypeKey(t)
}

package formula

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
)

// Function is the contract every built-in implements. ordinary invalid
// input yields an Excel error result; the Go error is reserved for
// structural failures such as circular references.
type Function interface {
	Execute(args []*FunctionArgument, ctx *Context) (CompileResult, error)
}

// FunctionFunc adapts a plain function to the Function interface
type FunctionFunc func(args []*FunctionArgument, ctx *Context) (CompileResult, error)

func (f FunctionFunc) Execute(args []*FunctionArgument, ctx *Context) (CompileResult, error) {
	return f(args, ctx)
}

// Unbounded as MaxArgs accepts any number of arguments
const Unbounded = -1

// FunctionDef registers a function under a name together with its arity
type FunctionDef struct {
	Name     string
	MinArgs  int
	MaxArgs  int
	Volatile bool
	Fn       Function
}

// Call validates the argument count and runs the function. an *ExcelError
// returned as a Go error by the implementation is turned into a result, so
// helpers can bail out early with Excel-visible failures.
func (d *FunctionDef) Call(args []*FunctionArgument, ctx *Context) (CompileResult, error) {
	if len(args) < d.MinArgs || (d.MaxArgs != Unbounded && len(args) > d.MaxArgs) {
		return NewErrorResultf(ErrorCodeValue, fmt.Sprintf("%s: wrong number of arguments (%d)", d.Name, len(args))), nil
	}
	result, err := d.Fn.Execute(args, ctx)
	if err != nil {
		var xe *ExcelError
		if errors.As(err, &xe) {
			return CompileResult{Value: xe, DataType: DataTypeExcelError}, nil
		}
		return Empty(), err
	}
	return result, nil
}

// Registry maps upper-case function names to their definitions
type Registry struct {
	mu        sync.RWMutex
	functions map[string]*FunctionDef
}

// NewRegistry creates a registry holding the built-in catalog
func NewRegistry() *Registry {
	r := &Registry{functions: make(map[string]*FunctionDef)}
	for _, group := range [][]*FunctionDef{
		logicalFunctions(),
		informationFunctions(),
		mathFunctions(),
		statisticalFunctions(),
		textFunctions(),
		lookupFunctions(),
		dateTimeFunctions(),
	} {
		for _, def := range group {
			r.Register(def)
		}
	}
	return r
}

// Register adds or replaces a function definition
func (r *Registry) Register(def *FunctionDef) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.functions[strings.ToUpper(def.Name)] = def
}

// Lookup finds a function by name, case-insensitively
func (r *Registry) Lookup(name string) (*FunctionDef, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	def, exists := r.functions[strings.ToUpper(stripFunctionPrefix(name))]
	return def, exists
}

// IsFunctionName reports whether name is registered
func (r *Registry) IsFunctionName(name string) bool {
	_, exists := r.Lookup(name)
	return exists
}

// Names returns the registered names in sorted order
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.functions))
	for name := range r.functions {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

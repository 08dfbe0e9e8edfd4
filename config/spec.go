package config

import (
	"go-ml.dev/pkg/zorros"
	"golang.org/x/xerrors"
	"sort"
)

var (
	ErrUnknownConstructible = xerrors.New("unknown constructible")
	ErrAlreadyBuilt         = xerrors.New("constructible is already built")
)

/*
Constructor makes a live object from resolved keyword arguments
*/
type Constructor func(args Args) (interface{}, error)

/*
Registry is a table of constructibles available to configuration documents
*/
type Registry struct {
	ctors map[string]Constructor
}

func NewRegistry() *Registry {
	return &Registry{ctors: map[string]Constructor{}}
}

/*
Register adds constructor to the registry, it panics if name is already registered
*/
func (r *Registry) Register(name string, ctor Constructor) {
	if ctor == nil {
		panic(zorros.Panic(zorros.Errorf("constructor for `%v` is nil", name)))
	}
	if _, ok := r.ctors[name]; ok {
		panic(zorros.Panic(zorros.Errorf("constructible `%v` is already registered", name)))
	}
	r.ctors[name] = ctor
}

func (r *Registry) Lookup(name string) (Constructor, bool) {
	c, ok := r.ctors[name]
	return c, ok
}

func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.ctors))
	for k := range r.ctors {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

/*
Spec is a constructible node, parsed but not yet built
*/
type Spec struct {
	Name  string
	path  string
	args  *Tree
	bound map[string]interface{}
	ctor  Constructor
	built bool
}

func newSpec(t *Tree, registry *Registry, path string) (*Spec, error) {
	name, ok := t.Get(TypeKey).(string)
	if !ok || name == "" {
		return nil, zorros.Errorf("`%v` in %v must be a non-empty string", TypeKey, where(path))
	}
	for _, k := range t.Keys() {
		if k != TypeKey && k != ArgsKey {
			return nil, zorros.Errorf("unexpected key `%v` next to `%v: %v` in %v, constructor arguments belong to `%v`",
				k, TypeKey, name, where(path), ArgsKey)
		}
	}
	if registry == nil {
		return nil, xerrors.Errorf("`%v` in %v: %w", name, where(path), ErrUnknownConstructible)
	}
	ctor, ok := registry.Lookup(name)
	if !ok {
		return nil, xerrors.Errorf("`%v` in %v, known are %v: %w", name, where(path), registry.Names(), ErrUnknownConstructible)
	}
	args := NewTree()
	if a, ok := t.Get(ArgsKey).(*Tree); ok {
		args = a
	} else if t.Get(ArgsKey) != nil {
		return nil, zorros.Errorf("`%v` of `%v` in %v must be a mapping", ArgsKey, name, where(path))
	}
	return &Spec{Name: name, path: path, args: args, bound: map[string]interface{}{}, ctor: ctor}, nil
}

/*
Args returns arguments given in the document
*/
func (s *Spec) Args() *Tree {
	return s.args
}

func (s *Spec) Built() bool {
	return s.built
}

/*
Bind attaches extra keyword arguments to be passed to the constructor.
Bound values take precedence over the document arguments.
*/
func (s *Spec) Bind(kv map[string]interface{}) error {
	if s.built {
		return xerrors.Errorf("can't bind arguments to `%v` in %v: %w", s.Name, where(s.path), ErrAlreadyBuilt)
	}
	for k, v := range kv {
		s.bound[k] = v
	}
	return nil
}

/*
Build resolves arguments, nested constructibles first, and calls the constructor
*/
func (s *Spec) Build() (interface{}, error) {
	if s.built {
		return nil, xerrors.Errorf("`%v` in %v: %w", s.Name, where(s.path), ErrAlreadyBuilt)
	}
	s.built = true
	args := Args{}
	for _, k := range s.args.Keys() {
		if _, ok := s.bound[k]; ok {
			continue
		}
		v, err := Resolve(s.args.Get(k))
		if err != nil {
			return nil, zorros.Wrapf(err, "failed to resolve argument `%v` of `%v`: %v", k, s.Name, err.Error())
		}
		args[k] = v
	}
	for k, v := range s.bound {
		args[k] = v
	}
	v, err := s.ctor(args)
	if err != nil {
		return nil, zorros.Wrapf(err, "failed to construct `%v` in %v: %v", s.Name, where(s.path), err.Error())
	}
	return v, nil
}

/*
Resolve returns in-memory value of the node with all nested constructibles built
*/
func Resolve(node interface{}) (interface{}, error) {
	switch x := node.(type) {
	case *Spec:
		return x.Build()
	case *Tree:
		r := NewTree()
		for _, k := range x.keys {
			v, err := Resolve(x.values[k])
			if err != nil {
				return nil, err
			}
			r.Set(k, v)
		}
		return r, nil
	case List:
		r := make(List, len(x))
		for i, e := range x {
			v, err := Resolve(e)
			if err != nil {
				return nil, err
			}
			r[i] = v
		}
		return r, nil
	default:
		return node, nil
	}
}

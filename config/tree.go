/*
Package config implements the declarative configuration tree and the two-phase
instantiation of constructible nodes.

A mapping carrying the reserved key `_type_` is constructible. Its arguments
live under `_args_`:

	sampler:
	  _type_: RandomPositionsSampler
	  _args_:
	    genome: hg38.fa.xz
	    sequence_length: 1000

Load parses a document into a Tree without side effects, every constructible
mapping becomes an unbuilt *Spec. Extra arguments can be attached to a spec
with Bind and the live object is produced by Build, exactly once.
*/
package config

import (
	"fmt"
	"go-ml.dev/pkg/zorros"
	"gopkg.in/yaml.v2"
	"io/ioutil"
	"sort"
)

const (
	TypeKey = "_type_"
	ArgsKey = "_args_"
)

/*
Tree is an ordered mapping of unique string keys to nodes
*/
type Tree struct {
	keys   []string
	values map[string]interface{}
}

/*
List is an ordered sequence of nodes
*/
type List []interface{}

func NewTree() *Tree {
	return &Tree{values: map[string]interface{}{}}
}

func (t *Tree) Len() int {
	return len(t.keys)
}

/*
Keys returns keys in the document order
*/
func (t *Tree) Keys() []string {
	return append([]string(nil), t.keys...)
}

func (t *Tree) Has(key string) bool {
	_, ok := t.values[key]
	return ok
}

func (t *Tree) Get(key string) interface{} {
	return t.values[key]
}

func (t *Tree) Set(key string, value interface{}) {
	if _, ok := t.values[key]; !ok {
		t.keys = append(t.keys, key)
	}
	t.values[key] = value
}

func (t *Tree) Pop(key string) (interface{}, bool) {
	v, ok := t.values[key]
	if !ok {
		return nil, false
	}
	delete(t.values, key)
	for i, k := range t.keys {
		if k == key {
			t.keys = append(t.keys[:i], t.keys[i+1:]...)
			break
		}
	}
	return v, true
}

/*
Tree returns nested mapping by key
*/
func (t *Tree) Tree(key string) (*Tree, bool) {
	x, ok := t.values[key].(*Tree)
	return x, ok
}

/*
Spec returns the constructible node stored under the key
*/
func (t *Tree) Spec(key string) (*Spec, error) {
	v, ok := t.values[key]
	if !ok {
		return nil, zorros.Errorf("configuration does not have required key `%v`", key)
	}
	s, ok := v.(*Spec)
	if !ok {
		return nil, zorros.Errorf("configuration key `%v` must be a constructible mapping with `%v`", key, TypeKey)
	}
	return s, nil
}

/*
Args converts the tree into a keyword arguments set, nested nodes are kept as is
*/
func (t *Tree) Args() Args {
	a := Args{}
	for _, k := range t.keys {
		a[k] = t.values[k]
	}
	return a
}

/*
Load reads and parses configuration document
*/
func Load(path string, registry *Registry) (*Tree, error) {
	bs, err := ioutil.ReadFile(path)
	if err != nil {
		return nil, zorros.Trace(err)
	}
	t, err := Parse(bs, registry)
	if err != nil {
		return nil, zorros.Wrapf(err, "bad configuration %v: %v", path, err.Error())
	}
	return t, nil
}

/*
Parse converts YAML document into a configuration tree.
Names of all constructible nodes are checked against the registry.
*/
func Parse(data []byte, registry *Registry) (*Tree, error) {
	var ms yaml.MapSlice
	if err := yaml.Unmarshal(data, &ms); err != nil {
		return nil, zorros.Wrapf(err, "failed to decode configuration: %v", err.Error())
	}
	n, err := convert(ms, registry, "")
	if err != nil {
		return nil, err
	}
	t, ok := n.(*Tree)
	if !ok {
		return nil, zorros.Errorf("configuration document must be a plain mapping")
	}
	return t, nil
}

func convert(v interface{}, registry *Registry, path string) (interface{}, error) {
	switch x := v.(type) {
	case yaml.MapSlice:
		t := NewTree()
		for _, item := range x {
			k := fmt.Sprint(item.Key)
			if t.Has(k) {
				return nil, zorros.Errorf("duplicate key `%v` in %v", k, where(path))
			}
			c, err := convert(item.Value, registry, join(path, k))
			if err != nil {
				return nil, err
			}
			t.Set(k, c)
		}
		if t.Has(TypeKey) {
			return newSpec(t, registry, path)
		}
		if t.Has(ArgsKey) {
			return nil, zorros.Errorf("`%v` without `%v` in %v", ArgsKey, TypeKey, where(path))
		}
		return t, nil
	case map[interface{}]interface{}:
		ms := make(yaml.MapSlice, 0, len(x))
		for k, e := range x {
			ms = append(ms, yaml.MapItem{Key: k, Value: e})
		}
		sort.Slice(ms, func(i, j int) bool { return fmt.Sprint(ms[i].Key) < fmt.Sprint(ms[j].Key) })
		return convert(ms, registry, path)
	case []interface{}:
		l := make(List, len(x))
		for i, e := range x {
			c, err := convert(e, registry, fmt.Sprintf("%v[%d]", path, i))
			if err != nil {
				return nil, err
			}
			l[i] = c
		}
		return l, nil
	default:
		return v, nil
	}
}

func join(path, key string) string {
	if path == "" {
		return key
	}
	return path + "." + key
}

func where(path string) string {
	if path == "" {
		return "document root"
	}
	return "`" + path + "`"
}

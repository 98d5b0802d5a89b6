package cerfa

import (
	"reflect"
	"strings"
)

// LeafKind is the shape of a ContractFormData leaf.
type LeafKind int

const (
	LeafText LeafKind = iota
	LeafTriState
	LeafSex
)

// Leaf is one defined value of a ContractFormData, addressed by field id.
type Leaf struct {
	ID    string
	Kind  LeafKind
	Text  string
	State TriState
	// Raw holds the original value of a sex leaf that is neither M nor F.
	Raw string
}

// Invalid reports whether the leaf holds a value the form cannot express.
func (l Leaf) Invalid() bool { return l.Kind == LeafSex && l.Raw != "" }

var (
	textType     = reflect.TypeOf(Text(""))
	triStateType = reflect.TypeOf(Unset)
	sexType      = reflect.TypeOf(Sex(""))
)

// node describes a struct section or a leaf of ContractFormData.
type node struct {
	name     string
	leaf     bool
	kind     LeafKind
	skip     bool
	index    int
	children []*node
}

var formTree = describe(reflect.TypeOf(ContractFormData{}))

func describe(t reflect.Type) *node {
	n := &node{}
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		name := jsonName(sf)
		if name == "" {
			continue
		}
		child := &node{name: name, index: i, skip: sf.Tag.Get("cerfa") == "-"}

		ft := sf.Type
		switch {
		case ft == textType:
			child.leaf, child.kind = true, LeafText
		case ft == triStateType:
			child.leaf, child.kind = true, LeafTriState
		case ft == sexType:
			child.leaf, child.kind = true, LeafSex
		case ft.Kind() == reflect.Ptr && ft.Elem().Kind() == reflect.Struct:
			child.children = describe(ft.Elem()).children
		default:
			child.leaf, child.kind, child.skip = true, LeafText, true
		}
		n.children = append(n.children, child)
	}
	return n
}

func jsonName(sf reflect.StructField) string {
	tag := sf.Tag.Get("json")
	if tag == "-" {
		return ""
	}
	if name, _, _ := strings.Cut(tag, ","); name != "" {
		return name
	}
	return sf.Name
}

// Leaves returns the defined leaves of data in form order: section by
// section, then field by field as declared. Empty text and Unset tri-states
// are absent and not returned.
func Leaves(data *ContractFormData) []Leaf {
	if data == nil {
		return nil
	}
	var out []Leaf
	collect(formTree, reflect.ValueOf(data).Elem(), "", &out)
	return out
}

func collect(n *node, v reflect.Value, prefix string, out *[]Leaf) {
	for _, child := range n.children {
		if child.skip {
			continue
		}
		id := child.name
		if prefix != "" {
			id = prefix + "." + child.name
		}
		fv := v.Field(child.index)

		if !child.leaf {
			if !fv.IsNil() {
				collect(child, fv.Elem(), id, out)
			}
			continue
		}

		switch child.kind {
		case LeafText:
			if s := fv.String(); s != "" {
				*out = append(*out, Leaf{ID: id, Kind: LeafText, Text: s})
			}
		case LeafTriState:
			if state := TriState(fv.Int()); state != Unset {
				*out = append(*out, Leaf{ID: id, Kind: LeafTriState, State: state})
			}
		case LeafSex:
			sex := Sex(fv.String())
			if sex == "" {
				continue
			}
			state, ok := sex.TriState()
			leaf := Leaf{ID: id, Kind: LeafSex, State: state}
			if !ok {
				leaf.Raw = string(sex)
			}
			*out = append(*out, leaf)
		}
	}
}

// KnownFieldIDs lists the id of every leaf ContractFormData can carry, in
// form order.
func KnownFieldIDs() []string {
	var ids []string
	var walk func(n *node, prefix string)
	walk = func(n *node, prefix string) {
		for _, child := range n.children {
			if child.skip {
				continue
			}
			id := child.name
			if prefix != "" {
				id = prefix + "." + child.name
			}
			if child.leaf {
				ids = append(ids, id)
			} else {
				walk(child, id)
			}
		}
	}
	walk(formTree, "")
	return ids
}

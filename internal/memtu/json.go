package memtu

import (
	"encoding/json"
	"fmt"
	"io"
)

// The JSON translation-unit format lets the CLI run the pipeline from a
// dumped unit instead of linking a parser. It is a flat list of declarations
// in source order; type references are either a name (builtin, record, enum
// or typedef declared earlier) or a constructor object.

type unitJSON struct {
	File   string      `json:"file"`
	Widths *widthsJSON `json:"widths,omitempty"`
	Decls  []declJSON  `json:"decls"`
}

type widthsJSON struct {
	Long int64 `json:"long"`
	Ptr  int64 `json:"ptr"`
}

type declJSON struct {
	Decl   string      `json:"decl"`
	Name   string      `json:"name,omitempty"`
	System bool        `json:"system,omitempty"`
	Fields []fieldJSON `json:"fields,omitempty"`
	Int    string      `json:"int,omitempty"`
	Values []valueJSON `json:"values,omitempty"`
	Type   *typeJSON   `json:"type,omitempty"`
	Result *typeJSON   `json:"result,omitempty"`
	Params []paramJSON `json:"params,omitempty"`

	Variadic     bool     `json:"variadic,omitempty"`
	Tokens       []string `json:"tokens,omitempty"`
	FunctionLike bool     `json:"function_like,omitempty"`
}

type fieldJSON struct {
	Name string   `json:"name"`
	Type typeJSON `json:"type"`
}

type paramJSON struct {
	Name string   `json:"name"`
	Type typeJSON `json:"type"`
}

type valueJSON struct {
	Name  string `json:"name"`
	Value int64  `json:"value"`
}

// typeJSON is either a bare name (string) or one constructor object.
type typeJSON struct {
	Name   string
	Ptr    *typeJSON
	Const  *typeJSON
	Array  *arrayJSON
	Fn     *fnJSON
	Struct []fieldJSON
	Union  []fieldJSON
}

type arrayJSON struct {
	Of    typeJSON `json:"of"`
	Count int64    `json:"count"`
}

type fnJSON struct {
	Result   typeJSON   `json:"result"`
	Params   []typeJSON `json:"params"`
	Variadic bool       `json:"variadic"`
}

func (t *typeJSON) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		return json.Unmarshal(data, &t.Name)
	}
	var obj struct {
		Ptr    *typeJSON   `json:"ptr"`
		Const  *typeJSON   `json:"const"`
		Array  *arrayJSON  `json:"array"`
		Fn     *fnJSON     `json:"fn"`
		Struct []fieldJSON `json:"struct"`
		Union  []fieldJSON `json:"union"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return err
	}
	t.Ptr, t.Const, t.Array, t.Fn = obj.Ptr, obj.Const, obj.Array, obj.Fn
	t.Struct, t.Union = obj.Struct, obj.Union
	return nil
}

// LoadJSON reads a JSON translation unit and materialises it as a Builder.
// Widths come from the unit itself, defaulting to LP64.
func LoadJSON(r io.Reader) (*Builder, error) {
	return loadJSON(r, nil)
}

// LoadJSONWidths is LoadJSON with the unit's widths overridden, so the same
// dump can be re-materialised once per target triple.
func LoadJSONWidths(r io.Reader, w Widths) (*Builder, error) {
	return loadJSON(r, &w)
}

func loadJSON(r io.Reader, override *Widths) (*Builder, error) {
	var unit unitJSON
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&unit); err != nil {
		return nil, fmt.Errorf("memtu: decode unit: %w", err)
	}
	if unit.File == "" {
		return nil, fmt.Errorf("memtu: unit has no file")
	}

	widths := LP64()
	if unit.Widths != nil {
		widths = Widths{Long: unit.Widths.Long, Ptr: unit.Widths.Ptr}
	}
	if override != nil {
		widths = *override
	}
	b := NewBuilder(unit.File, widths)
	loader := &jsonLoader{b: b, named: map[string]*Type{}}
	for i := range unit.Decls {
		if err := loader.addDecl(&unit.Decls[i]); err != nil {
			return nil, err
		}
	}
	return b, nil
}

type jsonLoader struct {
	b     *Builder
	named map[string]*Type
}

func (l *jsonLoader) addDecl(d *declJSON) error {
	l.b.SetSystem(d.System)
	defer l.b.SetSystem(false)

	switch d.Decl {
	case "struct", "union":
		fields, err := l.fields(d.Fields)
		if err != nil {
			return fmt.Errorf("%s %s: %w", d.Decl, d.Name, err)
		}
		var typ *Type
		if d.Decl == "union" {
			_, typ = l.b.Union(d.Name, fields...)
		} else {
			_, typ = l.b.Struct(d.Name, fields...)
		}
		if d.Name != "" {
			l.named[d.Name] = typ
		}
	case "opaque":
		_, typ := l.b.ForwardStruct(d.Name)
		l.named[d.Name] = typ
	case "enum":
		integer := l.b.UInt
		if d.Int != "" {
			t, err := l.resolve(typeJSON{Name: d.Int})
			if err != nil {
				return fmt.Errorf("enum %s: %w", d.Name, err)
			}
			integer = t
		}
		values := make([]EnumValue, len(d.Values))
		for i, v := range d.Values {
			values[i] = EnumValue{Name: v.Name, Value: v.Value}
		}
		_, typ := l.b.Enum(d.Name, integer, values...)
		l.named[d.Name] = typ
	case "typedef":
		if d.Type == nil {
			return fmt.Errorf("typedef %s: missing type", d.Name)
		}
		underlying, err := l.resolve(*d.Type)
		if err != nil {
			return fmt.Errorf("typedef %s: %w", d.Name, err)
		}
		_, typ := l.b.Typedef(d.Name, underlying)
		l.named[d.Name] = typ
	case "function":
		result := l.b.Void
		if d.Result != nil {
			t, err := l.resolve(*d.Result)
			if err != nil {
				return fmt.Errorf("function %s: %w", d.Name, err)
			}
			result = t
		}
		params := make([]Param, len(d.Params))
		for i, p := range d.Params {
			t, err := l.resolve(p.Type)
			if err != nil {
				return fmt.Errorf("function %s param %q: %w", d.Name, p.Name, err)
			}
			params[i] = Param{Name: p.Name, Type: t}
		}
		l.b.Function(d.Name, result, d.Variadic, params...)
	case "var":
		if d.Type == nil {
			return fmt.Errorf("var %s: missing type", d.Name)
		}
		t, err := l.resolve(*d.Type)
		if err != nil {
			return fmt.Errorf("var %s: %w", d.Name, err)
		}
		l.b.Var(d.Name, t)
	case "macro":
		if d.FunctionLike {
			l.b.MacroFn(d.Name, d.Tokens...)
		} else {
			l.b.Macro(d.Name, d.Tokens...)
		}
	default:
		return fmt.Errorf("memtu: unknown decl kind %q", d.Decl)
	}
	return nil
}

func (l *jsonLoader) fields(specs []fieldJSON) ([]Field, error) {
	out := make([]Field, len(specs))
	for i, f := range specs {
		t, err := l.resolve(f.Type)
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", f.Name, err)
		}
		out[i] = Field{Name: f.Name, Type: t}
	}
	return out, nil
}

func (l *jsonLoader) resolve(spec typeJSON) (*Type, error) {
	switch {
	case spec.Name != "":
		if t, ok := l.builtinByName(spec.Name); ok {
			return t, nil
		}
		if t, ok := l.named[spec.Name]; ok {
			return t, nil
		}
		return nil, fmt.Errorf("unknown type %q", spec.Name)
	case spec.Ptr != nil:
		pointee, err := l.resolve(*spec.Ptr)
		if err != nil {
			return nil, err
		}
		return l.b.Pointer(pointee), nil
	case spec.Const != nil:
		inner, err := l.resolve(*spec.Const)
		if err != nil {
			return nil, err
		}
		return l.b.Const(inner), nil
	case spec.Array != nil:
		elem, err := l.resolve(spec.Array.Of)
		if err != nil {
			return nil, err
		}
		return l.b.ConstArray(elem, spec.Array.Count), nil
	case spec.Fn != nil:
		result, err := l.resolve(spec.Fn.Result)
		if err != nil {
			return nil, err
		}
		args := make([]*Type, len(spec.Fn.Params))
		for i, p := range spec.Fn.Params {
			if args[i], err = l.resolve(p); err != nil {
				return nil, err
			}
		}
		return l.b.FunctionProto(result, spec.Fn.Variadic, args...), nil
	case spec.Struct != nil:
		fields, err := l.fields(spec.Struct)
		if err != nil {
			return nil, err
		}
		_, typ := l.b.Struct("", fields...)
		return typ, nil
	case spec.Union != nil:
		fields, err := l.fields(spec.Union)
		if err != nil {
			return nil, err
		}
		_, typ := l.b.Union("", fields...)
		return typ, nil
	}
	return nil, fmt.Errorf("empty type reference")
}

func (l *jsonLoader) builtinByName(name string) (*Type, bool) {
	b := l.b
	switch name {
	case "void":
		return b.Void, true
	case "_Bool", "bool":
		return b.Bool, true
	case "char":
		return b.Char, true
	case "signed char":
		return b.SChar, true
	case "unsigned char":
		return b.UChar, true
	case "short":
		return b.Short, true
	case "unsigned short":
		return b.UShort, true
	case "int":
		return b.Int, true
	case "unsigned int":
		return b.UInt, true
	case "long":
		return b.Long, true
	case "unsigned long":
		return b.ULong, true
	case "long long":
		return b.LongLong, true
	case "unsigned long long":
		return b.ULongLong, true
	case "float":
		return b.Float, true
	case "double":
		return b.Double, true
	case "long double":
		return b.LongDouble, true
	}
	return nil, false
}

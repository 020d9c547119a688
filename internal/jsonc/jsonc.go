// Package jsonc parses JSON documents into a tree that remembers the order in
// which object keys were declared. Key order is significant for package.json
// "exports" and "imports" maps and for tsconfig "paths", which the standard
// library's map-based decoding would discard.
package jsonc

import (
	"bytes"
	"errors"
	"fmt"
	"strconv"

	"github.com/francoispqt/gojay"
	"github.com/tailscale/hujson"
)

type Kind uint8

const (
	Null Kind = iota
	Bool
	Number
	String
	Array
	Object
)

func (k Kind) String() string {
	switch k {
	case Null:
		return "null"
	case Bool:
		return "boolean"
	case Number:
		return "number"
	case String:
		return "string"
	case Array:
		return "array"
	case Object:
		return "object"
	}
	return "unknown"
}

type Property struct {
	Key   string
	Value Value
}

type Value struct {
	Str   string
	Items []Value
	Props []Property
	Num   float64
	Kind  Kind
	Bool  bool
}

// Get returns the value of the last property named key, matching how
// JavaScript treats duplicate keys.
func (v Value) Get(key string) (Value, bool) {
	if v.Kind != Object {
		return Value{}, false
	}
	for i := len(v.Props) - 1; i >= 0; i-- {
		if v.Props[i].Key == key {
			return v.Props[i].Value, true
		}
	}
	return Value{}, false
}

func (v Value) GetString(key string) (string, bool) {
	if prop, ok := v.Get(key); ok && prop.Kind == String {
		return prop.Str, true
	}
	return "", false
}

// SyntaxError is returned for content that isn't well-formed.
type SyntaxError struct {
	Err error
}

func (e *SyntaxError) Error() string {
	return e.Err.Error()
}

func (e *SyntaxError) Unwrap() error {
	return e.Err
}

// Documents nested deeper than this are rejected before parsing. Parsing
// recurses once per level.
const maxDepth = 10000

// Parse parses strict JSON. Comments and trailing commas are rejected.
func Parse(contents []byte) (Value, error) {
	ast, err := parseAST(contents)
	if err != nil {
		return Value{}, err
	}
	if !ast.IsStandard() {
		return Value{}, &SyntaxError{Err: fmt.Errorf("comments and trailing commas are not allowed")}
	}
	return convert(ast.Value)
}

// ParseJSONC parses JSON that may contain comments and trailing commas, as
// accepted in tsconfig.json files.
func ParseJSONC(contents []byte) (Value, error) {
	ast, err := parseAST(contents)
	if err != nil {
		return Value{}, err
	}
	return convert(ast.Value)
}

func parseAST(contents []byte) (hujson.Value, error) {
	if err := checkDepth(contents); err != nil {
		return hujson.Value{}, err
	}
	ast, err := hujson.Parse(contents)
	if err != nil {
		return hujson.Value{}, &SyntaxError{Err: err}
	}
	return ast, nil
}

// checkDepth scans for "{" and "[" outside of strings and comments
func checkDepth(contents []byte) error {
	depth := 0
	for i := 0; i < len(contents); i++ {
		switch c := contents[i]; c {
		case '"':
			for i++; i < len(contents) && contents[i] != '"'; i++ {
				if contents[i] == '\\' {
					i++
				}
			}
		case '/':
			if i+1 < len(contents) && contents[i+1] == '/' {
				if end := bytes.IndexByte(contents[i:], '\n'); end != -1 {
					i += end
				} else {
					i = len(contents)
				}
			} else if i+1 < len(contents) && contents[i+1] == '*' {
				if end := bytes.Index(contents[i+2:], []byte("*/")); end != -1 {
					i += end + 3
				} else {
					i = len(contents)
				}
			}
		case '{', '[':
			depth++
			if depth > maxDepth {
				return &SyntaxError{Err: fmt.Errorf("nesting is deeper than %d levels", maxDepth)}
			}
		case '}', ']':
			depth--
		}
	}
	return nil
}

// convert walks the syntax tree once. Literals were already validated by
// the parser.
func convert(node hujson.ValueTrimmed) (Value, error) {
	switch node := node.(type) {
	case *hujson.Object:
		value := Value{Kind: Object}
		for _, member := range node.Members {
			key, err := unquote(member.Name.Value.(hujson.Literal))
			if err != nil {
				return Value{}, err
			}
			child, err := convert(member.Value.Value)
			if err != nil {
				return Value{}, err
			}
			value.Props = append(value.Props, Property{Key: key, Value: child})
		}
		return value, nil

	case *hujson.Array:
		value := Value{Kind: Array}
		for _, element := range node.Elements {
			child, err := convert(element.Value)
			if err != nil {
				return Value{}, err
			}
			value.Items = append(value.Items, child)
		}
		return value, nil

	case hujson.Literal:
		switch node.Kind() {
		case 'n':
			return Value{Kind: Null}, nil
		case 't', 'f':
			return Value{Kind: Bool, Bool: node.Bool()}, nil
		case '"':
			str, err := unquote(node)
			if err != nil {
				return Value{}, err
			}
			return Value{Kind: String, Str: str}, nil
		case '0':
			// Out-of-range numbers become infinities or zero, like JSON.parse
			n, err := strconv.ParseFloat(string(node), 64)
			if err != nil && !errors.Is(err, strconv.ErrRange) {
				return Value{}, &SyntaxError{Err: err}
			}
			return Value{Kind: Number, Num: n}, nil
		}
	}
	return Value{}, &SyntaxError{Err: fmt.Errorf("unexpected JSON value")}
}

func unquote(literal hujson.Literal) (string, error) {
	var str string
	if err := gojay.Unmarshal(literal, &str); err != nil {
		return "", &SyntaxError{Err: err}
	}
	return str, nil
}

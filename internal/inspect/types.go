// Package inspect prints the shape of a JSON document: every object key with
// the type of its value, descending into nested objects and lists up to a
// maximum depth.
package inspect

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
)

// DefaultMaxDepth is the depth used by the types command.
const DefaultMaxDepth = 2

type kind string

const (
	kindDict  kind = "dict"
	kindList  kind = "list"
	kindStr   kind = "str"
	kindInt   kind = "int"
	kindFloat kind = "float"
	kindBool  kind = "bool"
	kindNull  kind = "NoneType"
)

// node is a decoded JSON value that keeps object keys in document order.
type node struct {
	kind   kind
	keys   []string
	values []*node
}

// PrintTypes decodes one JSON document from r and writes its type outline to w.
func PrintTypes(w io.Writer, r io.Reader, maxDepth int) error {
	dec := json.NewDecoder(r)
	dec.UseNumber()

	root, err := decode(dec)
	if err != nil {
		return fmt.Errorf("failed to decode JSON: %w", err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return errors.New("failed to decode JSON: trailing data after document")
	}

	return writeNode(w, root, "", 1, maxDepth)
}

func decode(dec *json.Decoder) (*node, error) {
	tok, err := dec.Token()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, io.ErrUnexpectedEOF
		}
		return nil, err
	}

	switch v := tok.(type) {
	case json.Delim:
		switch v {
		case '{':
			n := &node{kind: kindDict}
			for dec.More() {
				keyTok, err := dec.Token()
				if err != nil {
					return nil, err
				}
				key, ok := keyTok.(string)
				if !ok {
					return nil, fmt.Errorf("unexpected object key %v", keyTok)
				}
				child, err := decode(dec)
				if err != nil {
					return nil, err
				}
				n.keys = append(n.keys, key)
				n.values = append(n.values, child)
			}
			if _, err := dec.Token(); err != nil {
				return nil, err
			}
			return n, nil
		case '[':
			n := &node{kind: kindList}
			for dec.More() {
				child, err := decode(dec)
				if err != nil {
					return nil, err
				}
				n.values = append(n.values, child)
			}
			if _, err := dec.Token(); err != nil {
				return nil, err
			}
			return n, nil
		default:
			return nil, fmt.Errorf("unexpected delimiter %q", v)
		}
	case string:
		return &node{kind: kindStr}, nil
	case json.Number:
		if strings.ContainsAny(v.String(), ".eE") {
			return &node{kind: kindFloat}, nil
		}
		return &node{kind: kindInt}, nil
	case bool:
		return &node{kind: kindBool}, nil
	case nil:
		return &node{kind: kindNull}, nil
	default:
		return nil, fmt.Errorf("unexpected token %v", tok)
	}
}

func (n *node) container() bool {
	return n.kind == kindDict || n.kind == kindList
}

func writeNode(w io.Writer, n *node, prefix string, depth, maxDepth int) error {
	switch n.kind {
	case kindDict:
		for i, key := range n.keys {
			v := n.values[i]
			if _, err := fmt.Fprintf(w, "%s%s: %s\n", prefix, key, v.kind); err != nil {
				return err
			}
			if v.container() && depth < maxDepth {
				if err := writeNode(w, v, prefix+"  ", depth+1, maxDepth); err != nil {
					return err
				}
			}
		}
	case kindList:
		if len(n.values) == 0 {
			return nil
		}
		first := n.values[0]
		if _, err := fmt.Fprintf(w, "%s[list of %s]\n", prefix, first.kind); err != nil {
			return err
		}
		if first.container() && depth < maxDepth {
			return writeNode(w, first, prefix+"  ", depth+1, maxDepth)
		}
	}
	return nil
}

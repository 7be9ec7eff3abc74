package tree

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"golang.org/x/text/unicode/norm"
)

// MalformedDocumentError reports an undecodable configuration document.
// DocPath locates the offending node in document terms ("root",
// "actions[0].actions[2]", ...).
type MalformedDocumentError struct {
	DocPath string
	Reason  string
	Err     error
}

func (e *MalformedDocumentError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("malformed document at %s: %s: %v", e.DocPath, e.Reason, e.Err)
	}
	return fmt.Sprintf("malformed document at %s: %s", e.DocPath, e.Reason)
}

func (e *MalformedDocumentError) Unwrap() error { return e.Err }

// docNode is the wire form of a node. Pointer fields distinguish absent
// from empty: a group must carry an actions array (possibly empty) and an
// action must carry a string value.
type docNode struct {
	Key      string     `json:"key"`
	Type     string     `json:"type"`
	Label    string     `json:"label"`
	IconPath string     `json:"iconPath"`
	Value    *string    `json:"value"`
	Actions  *[]docNode `json:"actions"`
}

// Decode parses a configuration document into a tree, assigning every node
// a fresh transient identity. The root must be a group.
func Decode(data []byte) (*Node, error) {
	var doc docNode
	dec := json.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(&doc); err != nil {
		return nil, &MalformedDocumentError{DocPath: "root", Reason: "invalid JSON", Err: err}
	}
	root, err := decodeNode(doc, "root")
	if err != nil {
		return nil, err
	}
	if !root.IsGroup() {
		return nil, &MalformedDocumentError{DocPath: "root", Reason: fmt.Sprintf("root must have type %q, got %q", TypeGroup, root.Type)}
	}
	return root, nil
}

func decodeNode(doc docNode, docPath string) (*Node, error) {
	t := NodeType(doc.Type)
	if !t.Valid() {
		return nil, &MalformedDocumentError{DocPath: docPath, Reason: fmt.Sprintf("unrecognized node type %q", doc.Type)}
	}

	n := &Node{
		id:       uuid.New(),
		Type:     t,
		Key:      norm.NFC.String(DecodeKey(doc.Key)),
		Label:    norm.NFC.String(doc.Label),
		IconPath: norm.NFC.String(doc.IconPath),
	}

	if t == TypeGroup {
		if doc.Actions == nil {
			return nil, &MalformedDocumentError{DocPath: docPath, Reason: "group node is missing the actions array"}
		}
		n.Children = make([]*Node, 0, len(*doc.Actions))
		for i, childDoc := range *doc.Actions {
			child, err := decodeNode(childDoc, fmt.Sprintf("%s.actions[%d]", docPath, i))
			if err != nil {
				return nil, err
			}
			n.Children = append(n.Children, child)
		}
		return n, nil
	}

	if doc.Value == nil {
		return nil, &MalformedDocumentError{DocPath: docPath, Reason: fmt.Sprintf("%s node is missing the string value field", t)}
	}
	n.Value = norm.NFC.String(*doc.Value)
	return n, nil
}

// Encode renders a tree as the canonical document: UTF-8, two-space
// indented, object keys sorted, NFC-normalized strings, no HTML escaping,
// empty label/iconPath/key omitted. Encoding the same tree twice yields
// byte-identical output; the store hashes these exact bytes for conflict
// detection.
func Encode(root *Node) ([]byte, error) {
	if root == nil || !root.IsGroup() {
		return nil, fmt.Errorf("encode: root must be a group")
	}
	m, err := encodeNode(root)
	if err != nil {
		return nil, err
	}

	// Maps marshal with sorted keys, which is exactly the canonical field
	// order the document format requires.
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(m); err != nil {
		return nil, fmt.Errorf("encode: %w", err)
	}
	return buf.Bytes(), nil
}

func encodeNode(n *Node) (map[string]any, error) {
	if !n.Type.Valid() {
		return nil, fmt.Errorf("encode: unrecognized node type %q", n.Type)
	}

	m := map[string]any{"type": string(n.Type)}
	if n.Key != "" {
		m["key"] = EncodeKey(norm.NFC.String(n.Key))
	}
	if n.Label != "" {
		m["label"] = norm.NFC.String(n.Label)
	}
	if n.IconPath != "" {
		m["iconPath"] = norm.NFC.String(n.IconPath)
	}

	if n.Type == TypeGroup {
		children := make([]any, len(n.Children))
		for i, ch := range n.Children {
			cm, err := encodeNode(ch)
			if err != nil {
				return nil, err
			}
			children[i] = cm
		}
		m["actions"] = children
		return m, nil
	}

	m["value"] = norm.NFC.String(n.Value)
	return m, nil
}

// Package xmlutil builds XML elements from writer callbacks.
package xmlutil

import (
	"bytes"
	"fmt"
	"io"

	"github.com/beevik/etree"
)

// CreateElement runs write against an in-memory sink and parses what it wrote.
// The result is the document element, detached from its document.
func CreateElement(write func(w io.Writer) error) (*etree.Element, error) {
	var buf bytes.Buffer
	if err := write(&buf); err != nil {
		return nil, err
	}
	return ParseElement(buf.Bytes())
}

// ParseElement parses data and returns its root element.
func ParseElement(data []byte) (*etree.Element, error) {
	doc := etree.NewDocument()
	doc.ReadSettings.Permissive = false
	if err := doc.ReadFromBytes(data); err != nil {
		return nil, fmt.Errorf("parse xml: %w", err)
	}
	root := doc.Root()
	if root == nil {
		return nil, fmt.Errorf("parse xml: document has no root element")
	}
	doc.RemoveChildAt(root.Index())
	return root, nil
}

// WriteElement serializes el without an XML declaration and without indentation.
func WriteElement(w io.Writer, el *etree.Element) error {
	doc := etree.NewDocument()
	doc.SetRoot(el.Copy())
	_, err := doc.WriteTo(w)
	return err
}

// String serializes el, indented when indent is true.
func String(el *etree.Element, indent bool) string {
	doc := etree.NewDocument()
	doc.SetRoot(el.Copy())
	if indent {
		doc.Indent(2)
	}
	s, err := doc.WriteToString()
	if err != nil {
		return ""
	}
	return s
}

// ChildText returns the text of the first child matching path, or "".
func ChildText(el *etree.Element, path string) string {
	if el == nil {
		return ""
	}
	child := el.FindElement(path)
	if child == nil {
		return ""
	}
	return child.Text()
}

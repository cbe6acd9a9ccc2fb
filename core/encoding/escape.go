// Package encoding provides shared text encoding and escaping utilities.
//
// All XML emitted by the serializer goes through these helpers; no element or
// attribute content is ever string-interpolated without escaping.
package encoding

import (
	"bytes"
	"encoding/xml"
	"strings"
)

// EscapeXML escapes special characters for XML content.
// Uses the standard library's xml.EscapeText for proper escaping.
func EscapeXML(s string) string {
	var buf bytes.Buffer
	xml.EscapeText(&buf, []byte(s))
	return buf.String()
}

// EscapeXMLText escapes only the basic XML entities for text content.
// This is a lighter-weight alternative to EscapeXML.
func EscapeXMLText(s string) string {
	s = strings.ReplaceAll(s, "&", "&amp;")
	s = strings.ReplaceAll(s, "<", "&lt;")
	s = strings.ReplaceAll(s, ">", "&gt;")
	return s
}

// EscapeXMLAttr escapes text for use in XML attributes.
// Includes quote escaping in addition to basic XML entities.
func EscapeXMLAttr(s string) string {
	s = EscapeXMLText(s)
	s = strings.ReplaceAll(s, "\"", "&quot;")
	return s
}

// NeedsSpacePreserve reports whether run text must carry xml:space="preserve"
// to survive a round trip (leading/trailing whitespace is otherwise dropped
// by consumers of the host format).
func NeedsSpacePreserve(s string) bool {
	return s != strings.TrimSpace(s)
}

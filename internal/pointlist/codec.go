package pointlist

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"math"
	"path/filepath"
	"strconv"
	"strings"
)

// Element and runtype names of the multipoint document. The consuming
// instrument software matches these literally.
const (
	rootElement      = "variant"
	containerElement = "no_name"
	pointPrefix      = "Point"

	fieldChecked   = "bChecked"
	fieldName      = "strName"
	fieldX         = "dXPosition"
	fieldY         = "dYPosition"
	fieldZ         = "dZPosition"
	fieldPFSOffset = "dPFSOffset"
	fieldUserData  = "baUserData"
)

// Serialize renders the list as a multipoint document.
func Serialize(list PointList) []byte {
	var buf bytes.Buffer
	// bytes.Buffer writes never fail.
	_ = Encode(&buf, list)
	return buf.Bytes()
}

// Encode writes the list as a multipoint document. Lines are joined by a
// single newline with no trailing newline.
func Encode(w io.Writer, list PointList) error {
	lines := make([]string, 0, 6+9*len(list))
	lines = append(lines,
		`<variant version="1.0">`,
		`<no_name runtype="CLxListVariant">`,
		`<bIncludeZ runtype="bool" value="false"/>`,
		`<bPFSEnabled runtype="bool" value="true"/>`,
	)
	for idx, p := range list {
		tag := fmt.Sprintf("%s%05d", pointPrefix, idx)
		lines = append(lines,
			`<`+tag+` runtype="NDSetupMultipointListItem">`,
			`<bChecked runtype="bool" value="`+strconv.FormatBool(p.Checked)+`"/>`,
			`<strName runtype="CLxStringW" value="`+escapeAttr(p.Name)+`"/>`,
			`<dXPosition runtype="double" value="`+FormatFloat(p.X)+`"/>`,
			`<dYPosition runtype="double" value="`+FormatFloat(p.Y)+`"/>`,
			`<dZPosition runtype="double" value="`+FormatFloat(p.Z)+`"/>`,
			`<dPFSOffset runtype="double" value="`+FormatFloat(p.PFSOffset)+`"/>`,
			`<baUserData runtype="CLxByteArray" value=""/>`,
			`</`+tag+`>`,
		)
	}
	lines = append(lines, `</no_name>`, `</variant>`)

	_, err := io.WriteString(w, strings.Join(lines, "\n"))
	return err
}

// FormatFloat formats v the way the instrument software's own exports do:
// shortest round-trip digits, always with a decimal point, switching to
// exponent notation below 1e-4 and from 1e16.
func FormatFloat(v float64) string {
	switch {
	case math.IsNaN(v):
		return "nan"
	case math.IsInf(v, 1):
		return "inf"
	case math.IsInf(v, -1):
		return "-inf"
	case v == 0:
		if math.Signbit(v) {
			return "-0.0"
		}
		return "0.0"
	}

	sci := strconv.FormatFloat(v, 'e', -1, 64)
	exp, _ := strconv.Atoi(sci[strings.IndexByte(sci, 'e')+1:])
	if exp < -4 || exp >= 16 {
		return sci
	}

	s := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}

func escapeAttr(s string) string {
	if !strings.ContainsAny(s, "<>&\"'\t\n\r") {
		return s
	}
	var b strings.Builder
	// strings.Builder writes never fail.
	_ = xml.EscapeText(&b, []byte(s))
	return b.String()
}

// xmlNode is a generic element tree; point elements have indexed tag names
// so the document cannot be unmarshalled into fixed struct fields.
type xmlNode struct {
	XMLName xml.Name
	Attrs   []xml.Attr `xml:",any,attr"`
	Nodes   []xmlNode  `xml:",any"`
}

func (n *xmlNode) child(name string) *xmlNode {
	for i := range n.Nodes {
		if n.Nodes[i].XMLName.Local == name {
			return &n.Nodes[i]
		}
	}
	return nil
}

func (n *xmlNode) attr(name string) (string, bool) {
	for _, a := range n.Attrs {
		if a.Name.Local == name {
			return a.Value, true
		}
	}
	return "", false
}

// Decode reads a multipoint document and returns its points with names and
// flags exactly as stored.
func Decode(r io.Reader) (PointList, error) {
	return decode(r, "")
}

func decode(r io.Reader, source string) (PointList, error) {
	var root xmlNode
	if err := xml.NewDecoder(r).Decode(&root); err != nil {
		return nil, &ParseError{Source: source, Err: err}
	}

	container := root.child(containerElement)
	if container == nil {
		return nil, &ParseError{
			Source:  source,
			Element: root.XMLName.Local,
			Field:   containerElement,
			Err:     errors.New("missing point list container"),
		}
	}

	list := make(PointList, 0, len(container.Nodes))
	for i := range container.Nodes {
		node := &container.Nodes[i]
		if !strings.HasPrefix(node.XMLName.Local, pointPrefix) {
			continue
		}
		p, err := decodePoint(node)
		if err != nil {
			err.Source = source
			return nil, err
		}
		list = append(list, p)
	}
	return list, nil
}

func decodePoint(node *xmlNode) (Point, *ParseError) {
	p := Point{Checked: true}
	fail := func(field string, err error) *ParseError {
		return &ParseError{Element: node.XMLName.Local, Field: field, Err: err}
	}

	floats := []struct {
		field string
		dst   *float64
	}{
		{fieldX, &p.X},
		{fieldY, &p.Y},
		{fieldZ, &p.Z},
		{fieldPFSOffset, &p.PFSOffset},
	}
	for _, f := range floats {
		el := node.child(f.field)
		if el == nil {
			return p, fail(f.field, errors.New("missing element"))
		}
		raw, ok := el.attr("value")
		if !ok {
			return p, fail(f.field, errors.New("missing value attribute"))
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
		if err != nil {
			return p, fail(f.field, err)
		}
		*f.dst = v
	}

	if el := node.child(fieldChecked); el != nil {
		if raw, ok := el.attr("value"); ok {
			v, err := strconv.ParseBool(strings.TrimSpace(raw))
			if err != nil {
				return p, fail(fieldChecked, err)
			}
			p.Checked = v
		}
	}

	if el := node.child(fieldName); el != nil {
		p.Name, _ = el.attr("value")
	}
	return p, nil
}

// ParseSource reads a document contributed by the named source for merging.
// Every name is prefixed with the source's base name; points without a name
// become P01, P02, ... by position within the source.
func ParseSource(r io.Reader, source string) (PointList, error) {
	list, err := decode(r, source)
	if err != nil {
		return nil, err
	}

	base := SourceBase(source)
	for i := range list {
		name := strings.TrimSpace(list[i].Name)
		if name == "" {
			name = fmt.Sprintf("P%02d", i+1)
		}
		if base != "" {
			name = base + "_" + name
		}
		list[i].Name = name
	}
	return list, nil
}

// SourceBase returns the file name of source without directory or extension.
func SourceBase(source string) string {
	if source == "" {
		return ""
	}
	base := filepath.Base(source)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

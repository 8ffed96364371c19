package spimdata

import (
	"encoding/xml"
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

// The three structures below carry data-driven element names, which the
// struct-tag mapping cannot express: the loader's data path element is
// named after the format, a setup's attributes block uses the attribute
// names as element names, and a registry's entries use the capitalized
// registry name.

// ImageLoader is the ImageLoader element. DataPath is the text of the
// format-named child element (hdf5 or n5), relative to the XML file.
type ImageLoader struct {
	Format   Format
	DataPath string
}

func (l ImageLoader) MarshalXML(e *xml.Encoder, start xml.StartElement) error {
	start.Name.Local = "ImageLoader"
	start.Attr = []xml.Attr{{Name: xml.Name{Local: "format"}, Value: string(l.Format)}}
	if err := e.EncodeToken(start); err != nil {
		return err
	}
	child := xml.StartElement{
		Name: xml.Name{Local: l.Format.dataElement()},
		Attr: []xml.Attr{{Name: xml.Name{Local: "type"}, Value: "relative"}},
	}
	if err := e.EncodeElement(l.DataPath, child); err != nil {
		return err
	}
	return e.EncodeToken(start.End())
}

func (l *ImageLoader) UnmarshalXML(d *xml.Decoder, start xml.StartElement) error {
	for _, a := range start.Attr {
		if a.Name.Local == "format" {
			l.Format = Format(a.Value)
		}
	}
	for {
		tok, err := d.Token()
		if err != nil {
			return err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			var tv TypedValue
			if err := d.DecodeElement(&tv, &t); err != nil {
				return err
			}
			l.DataPath = strings.TrimSpace(tv.Value)
		case xml.EndElement:
			return nil
		}
	}
}

// SetupAttribute is one name to id binding of a setup.
type SetupAttribute struct {
	Name string
	ID   int
}

// SetupAttributes is the ordered attributes block of a setup, rendered
// as one element per attribute with the name as element name and the id
// as text.
type SetupAttributes []SetupAttribute

func (a SetupAttributes) MarshalXML(e *xml.Encoder, start xml.StartElement) error {
	start.Name.Local = "attributes"
	start.Attr = nil
	if err := e.EncodeToken(start); err != nil {
		return err
	}
	for _, attr := range a {
		child := xml.StartElement{Name: xml.Name{Local: attr.Name}}
		if err := e.EncodeElement(strconv.Itoa(attr.ID), child); err != nil {
			return err
		}
	}
	return e.EncodeToken(start.End())
}

func (a *SetupAttributes) UnmarshalXML(d *xml.Decoder, start xml.StartElement) error {
	*a = nil
	for {
		tok, err := d.Token()
		if err != nil {
			return err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			var text string
			if err := d.DecodeElement(&text, &t); err != nil {
				return err
			}
			id, err := strconv.Atoi(strings.TrimSpace(text))
			if err != nil {
				return fmt.Errorf("attribute %q: bad id %q", t.Name.Local, text)
			}
			*a = append(*a, SetupAttribute{Name: t.Name.Local, ID: id})
		case xml.EndElement:
			return nil
		}
	}
}

// AttributeEntry is one id to display-name binding in a registry.
type AttributeEntry struct {
	ID   int    `xml:"id"`
	Name string `xml:"name"`
}

// AttributeRegistry is one Attributes element: the global registry of
// one attribute axis, with entries rendered under the capitalized
// registry name.
type AttributeRegistry struct {
	Name    string
	Entries []AttributeEntry
}

func (r AttributeRegistry) MarshalXML(e *xml.Encoder, start xml.StartElement) error {
	start.Name.Local = "Attributes"
	start.Attr = []xml.Attr{{Name: xml.Name{Local: "name"}, Value: r.Name}}
	if err := e.EncodeToken(start); err != nil {
		return err
	}
	child := xml.StartElement{Name: xml.Name{Local: capitalize(r.Name)}}
	for _, entry := range r.Entries {
		if err := e.EncodeElement(entry, child); err != nil {
			return err
		}
	}
	return e.EncodeToken(start.End())
}

func (r *AttributeRegistry) UnmarshalXML(d *xml.Decoder, start xml.StartElement) error {
	for _, a := range start.Attr {
		if a.Name.Local == "name" {
			r.Name = a.Value
		}
	}
	r.Entries = nil
	for {
		tok, err := d.Token()
		if err != nil {
			return err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			var entry AttributeEntry
			if err := d.DecodeElement(&entry, &t); err != nil {
				return err
			}
			r.Entries = append(r.Entries, entry)
		case xml.EndElement:
			return nil
		}
	}
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	runes := []rune(s)
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}

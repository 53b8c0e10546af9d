package entity

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"
)

// Deserialize reads a list of entity elements into entities. Each element name is an object type and each attribute
// a property typed with ParseImplied. Nested elements become children: they are created first, then the parent is
// created and the children are attached in document order.
//
// Parameters:
//   - r: the text to read
//   - entities: the graph objects are created in
//   - doc: the document the objects belong to
//
// Returns:
//   - []Identifier: the top level objects, in order
//   - error: a syntax error or the first object that could not be created
func Deserialize(r io.Reader, entities RetainedEntities, doc DocumentID) ([]Identifier, error) {
	dec := xml.NewDecoder(r)
	var roots []Identifier
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			return roots, nil
		}
		if err != nil {
			return roots, fmt.Errorf("entity: %w", err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			id, err := deserializeEntity(dec, t, entities, doc)
			if err != nil {
				return roots, err
			}
			roots = append(roots, id)
		case xml.CharData:
			if len(strings.TrimSpace(string(t))) != 0 {
				line, _ := dec.InputPos()
				return roots, fmt.Errorf("entity: unexpected text at line %d", line)
			}
		}
	}
}

func deserializeEntity(dec *xml.Decoder, start xml.StartElement, entities RetainedEntities, doc DocumentID) (Identifier, error) {
	line, _ := dec.InputPos()
	typeID := entities.TypeID(start.Name.Local)

	inits := make([]PropertyInitializer, 0, len(start.Attr))
	for _, a := range start.Attr {
		inits = append(inits, PropertyInitializer{
			Property: entities.PropertyID(typeID, a.Name.Local),
			Value:    ParseImplied(a.Value),
		})
	}

	var children []Identifier
	for {
		tok, err := dec.Token()
		if err != nil {
			return Identifier{}, fmt.Errorf("entity: reading <%s> from line %d: %w", start.Name.Local, line, err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			child, err := deserializeEntity(dec, t, entities, doc)
			if err != nil {
				return Identifier{}, err
			}
			children = append(children, child)
		case xml.EndElement:
			id := Identifier{Document: doc, Object: entities.AssignObjectID(doc, typeID), Type: typeID}
			if err := entities.CreateObject(id, inits...); err != nil {
				return Identifier{}, fmt.Errorf("entity: <%s> at line %d: %w", start.Name.Local, line, err)
			}
			for _, c := range children {
				if err := entities.SetParent(c, id, -1); err != nil {
					return Identifier{}, fmt.Errorf("entity: <%s> at line %d: %w", start.Name.Local, line, err)
				}
			}
			return id, nil
		}
	}
}

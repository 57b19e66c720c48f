package feed

import (
	"encoding/xml"
	"fmt"
	"time"
)

// Document is a parsed sales feed: a root carrying the sales date and a
// products element with zero or more product entries.
type Document struct {
	Date     string
	Products []ProductNode
}

// ProductNode is one raw product entry. Numeric fields stay unparsed here;
// Extract is responsible for typing them.
type ProductNode struct {
	ID       string `xml:"id"`
	Name     string `xml:"name"`
	Quantity string `xml:"quantity"`
	Price    string `xml:"price"`
	Category string `xml:"category"`
}

type feedXML struct {
	Date     string        `xml:"date,attr"`
	Products *productsNode `xml:"products"`
}

type productsNode struct {
	Product []ProductNode `xml:"product"`
}

// Parse decodes raw XML bytes into a Document. Syntax errors, a missing root
// date attribute, a missing products element and missing required leaf
// elements are all malformed-feed conditions.
func Parse(raw []byte) (*Document, error) {
	var f feedXML
	if err := xml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse feed: %w", err)
	}

	if f.Date == "" {
		return nil, fmt.Errorf("parse feed: missing date attribute on root element")
	}
	if _, err := time.Parse(time.DateOnly, f.Date); err != nil {
		return nil, fmt.Errorf("parse feed: invalid date %q: %w", f.Date, err)
	}
	if f.Products == nil {
		return nil, fmt.Errorf("parse feed: missing products element")
	}

	for i, p := range f.Products.Product {
		switch {
		case p.ID == "":
			return nil, fmt.Errorf("parse feed: product %d: missing id", i)
		case p.Name == "":
			return nil, fmt.Errorf("parse feed: product %d: missing name", i)
		case p.Quantity == "":
			return nil, fmt.Errorf("parse feed: product %d: missing quantity", i)
		case p.Price == "":
			return nil, fmt.Errorf("parse feed: product %d: missing price", i)
		case p.Category == "":
			return nil, fmt.Errorf("parse feed: product %d: missing category", i)
		}
	}

	return &Document{Date: f.Date, Products: f.Products.Product}, nil
}

package sandbox

import (
	"fmt"
	"strings"
	"sync"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// DOM is the document a preview script sees, parsed from the request's htmlContext.
type DOM struct {
	doc     *goquery.Document
	changes []DOMChange
	mu      sync.RWMutex
}

// Element is a single node found by a query.
type Element struct {
	sel      *goquery.Selection
	selector string
	dom      *DOM
}

// ParseDOM builds a DOM from markup. Fragments are wrapped in html/body by the parser.
func ParseDOM(markup string) (*DOM, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		return nil, fmt.Errorf("failed to parse html context: %w", err)
	}
	return &DOM{doc: doc}, nil
}

// Query finds elements by CSS selector. Invalid selectors match nothing.
func (d *DOM) Query(selector string) []*Element {
	d.mu.RLock()
	defer d.mu.RUnlock()

	var elements []*Element
	d.doc.Find(selector).Each(func(_ int, s *goquery.Selection) {
		if n := s.Get(0); n == nil || n.Type != html.ElementNode {
			return
		}
		elements = append(elements, &Element{sel: s, selector: selector, dom: d})
	})
	return elements
}

// Changes returns accumulated DOM changes
func (d *DOM) Changes() []DOMChange {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return append([]DOMChange(nil), d.changes...)
}

// HTML serializes the current document.
func (d *DOM) HTML() (string, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return goquery.OuterHtml(d.doc.Selection)
}

func (d *DOM) record(change DOMChange) {
	d.changes = append(d.changes, change)
}

// TagName is upper case, as in browsers.
func (e *Element) TagName() string {
	return strings.ToUpper(goquery.NodeName(e.sel))
}

func (e *Element) ID() string {
	e.dom.mu.RLock()
	defer e.dom.mu.RUnlock()
	return e.sel.AttrOr("id", "")
}

func (e *Element) ClassName() string {
	e.dom.mu.RLock()
	defer e.dom.mu.RUnlock()
	return e.sel.AttrOr("class", "")
}

func (e *Element) TextContent() string {
	e.dom.mu.RLock()
	defer e.dom.mu.RUnlock()
	return e.sel.Text()
}

// GetAttribute retrieves attribute value
func (e *Element) GetAttribute(name string) (string, bool) {
	e.dom.mu.RLock()
	defer e.dom.mu.RUnlock()
	return e.sel.Attr(strings.ToLower(name))
}

// SetAttribute sets attribute and records the change
func (e *Element) SetAttribute(name, value string) {
	e.dom.mu.Lock()
	defer e.dom.mu.Unlock()

	name = strings.ToLower(name)
	e.sel.SetAttr(name, value)
	e.dom.record(DOMChange{
		Type:     "set_attribute",
		Selector: e.selector,
		Property: name,
		Value:    value,
	})
}

// SetText replaces the element's children with a text node and records the change
func (e *Element) SetText(text string) {
	e.dom.mu.Lock()
	defer e.dom.mu.Unlock()

	e.sel.SetText(text)
	e.dom.record(DOMChange{
		Type:     "set_text",
		Selector: e.selector,
		Value:    text,
	})
}

package caldav

import "encoding/xml"

// Node is a generic XML element. Decoding into it keeps the full tree with
// document order preserved, independent of any higher-level XML mapping.
type Node struct {
	XMLName  xml.Name
	Children []Node `xml:",any"`
	Text     string `xml:",chardata"`
}

// FindElements walks the tree below root depth-first in document order and
// returns every element whose local name matches, at any depth. A matched
// element is not descended into, and root itself is never a candidate.
func FindElements(root *Node, localName string) []*Node {
	var elems []*Node
	for i := range root.Children {
		child := &root.Children[i]
		if child.XMLName.Local == localName {
			elems = append(elems, child)
		} else {
			elems = append(elems, FindElements(child, localName)...)
		}
	}
	return elems
}

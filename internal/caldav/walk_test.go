package caldav

import (
	"encoding/xml"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decode(t *testing.T, doc string) *Node {
	t.Helper()
	var root Node
	require.NoError(t, xml.Unmarshal([]byte(doc), &root))
	return &root
}

func texts(nodes []*Node) []string {
	out := make([]string, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, n.Text)
	}
	return out
}

func TestFindElementsAnyDepthDocumentOrder(t *testing.T) {
	root := decode(t, `<root>
		<leaf>one</leaf>
		<branch>
			<noise/>
			<leaf>two</leaf>
			<deeper><evenDeeper><leaf>three</leaf></evenDeeper></deeper>
		</branch>
		<other>ignored</other>
		<leaf>four</leaf>
	</root>`)

	got := FindElements(root, "leaf")
	assert.Equal(t, []string{"one", "two", "three", "four"}, texts(got))
}

func TestFindElementsDoesNotDescendIntoMatches(t *testing.T) {
	root := decode(t, `<root>
		<leaf>outer<leaf>inner</leaf></leaf>
	</root>`)

	got := FindElements(root, "leaf")
	require.Len(t, got, 1)
	// A matched element is not descended into; the nested match only
	// surfaces when walking from the match itself.
	assert.Len(t, FindElements(got[0], "leaf"), 1)
}

func TestFindElementsNoMatches(t *testing.T) {
	root := decode(t, `<root><a/><b><c/></b></root>`)
	assert.Empty(t, FindElements(root, "leaf"))
}

func TestFindElementsIgnoresNamespaceAtWalkLevel(t *testing.T) {
	root := decode(t, `<root xmlns:a="urn:a" xmlns:b="urn:b">
		<a:leaf>alpha</a:leaf>
		<b:leaf>beta</b:leaf>
	</root>`)

	got := FindElements(root, "leaf")
	require.Len(t, got, 2)
	assert.Equal(t, "urn:a", got[0].XMLName.Space)
	assert.Equal(t, "urn:b", got[1].XMLName.Space)
}

package pathtree

import (
	"fmt"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	orderedmap "github.com/wk8/go-ordered-map/v2"

	"apigateway-importer/internal/swagger"
	ierrors "apigateway-importer/pkg/errors"
)

// paths builds a path document from "key:verb,verb" entries, keeping order.
func paths(entries ...string) *orderedmap.OrderedMap[string, *swagger.PathItem] {
	doc := orderedmap.New[string, *swagger.PathItem]()
	for _, entry := range entries {
		key, verbList, _ := strings.Cut(entry, ":")
		item := &swagger.PathItem{Operations: orderedmap.New[string, *swagger.Operation]()}
		for _, verb := range strings.Split(verbList, ",") {
			if verb == "" {
				continue
			}
			item.Operations.Set(verb, &swagger.Operation{OperationID: key + "#" + verb})
		}
		doc.Set(key, item)
	}
	return doc
}

// flatten renders the tree as "path [VERBS]" lines in walk order.
func flatten(t *Tree) []string {
	var out []string
	t.Walk(func(n *Node) bool {
		var verbs []string
		if n.Methods != nil {
			for pair := n.Methods.Oldest(); pair != nil; pair = pair.Next() {
				verbs = append(verbs, pair.Key)
			}
		}
		out = append(out, fmt.Sprintf("%s [%s]", n.Path, strings.Join(verbs, " ")))
		return true
	})
	return out
}

func keys(m *orderedmap.OrderedMap[string, *Node]) []string {
	var out []string
	for pair := m.Oldest(); pair != nil; pair = pair.Next() {
		out = append(out, pair.Key)
	}
	return out
}

func TestBuild_RootAndNestedUser(t *testing.T) {
	tree, err := NewBuilder().Build(paths("/:get", "/user:get", "/user/{id}:delete"))
	require.NoError(t, err)

	assert.Equal(t, []string{"/", "user"}, keys(tree.Paths))

	root, _ := tree.Paths.Get("/")
	assert.True(t, root.IsRoot())
	assert.Nil(t, root.Paths)

	user, _ := tree.Paths.Get("user")
	require.True(t, user.HasMethods())
	_, hasGet := user.Methods.Get("GET")
	assert.True(t, hasGet)
	require.True(t, user.HasChildren())
	assert.Equal(t, []string{"{id}"}, keys(user.Paths))

	id, _ := user.Paths.Get("{id}")
	assert.Equal(t, "/user/{id}", id.Path)
	assert.Equal(t, 2, id.Depth)
	del, ok := id.Methods.Get("DELETE")
	require.True(t, ok)
	assert.Equal(t, "/user/{id}#delete", del.OperationID)

	assert.Equal(t, 2, tree.ResourceCount)
	assert.Equal(t, 3, tree.MethodCount)
	assert.Equal(t, 2, tree.MaxDepth)
}

func TestBuild_PrefixMerge(t *testing.T) {
	tree, err := NewBuilder().Build(paths("/a/b:get", "/a/b/c:post"))
	require.NoError(t, err)

	a, ok := tree.Paths.Get("a")
	require.True(t, ok)
	assert.False(t, a.HasMethods())
	assert.Equal(t, []string{"b"}, keys(a.Paths))

	b, _ := a.Paths.Get("b")
	_, hasGet := b.Methods.Get("GET")
	assert.True(t, hasGet)
	assert.Equal(t, []string{"c"}, keys(b.Paths))

	c, _ := b.Paths.Get("c")
	_, hasPost := c.Methods.Get("POST")
	assert.True(t, hasPost)
	assert.False(t, c.HasChildren())
}

func TestBuild_LongerPathFirst(t *testing.T) {
	tree, err := NewBuilder().Build(paths("/user/{id}:delete", "/user:get,post"))
	require.NoError(t, err)

	want := []string{
		"/user [GET POST]",
		"/user/{id} [DELETE]",
	}
	if diff := cmp.Diff(want, flatten(tree)); diff != "" {
		t.Errorf("tree mismatch (-want +got):\n%s", diff)
	}
}

func TestBuild_RootKeysMatchFirstSegments(t *testing.T) {
	doc := paths(
		"/orders/{orderId}/items:get",
		"/:get",
		"/customers:get,post",
		"/orders:get",
		"/customers/{id}:get,put,delete",
	)
	tree, err := NewBuilder().Build(doc)
	require.NoError(t, err)

	assert.Equal(t, []string{"orders", "/", "customers"}, keys(tree.Paths))

	// Every terminal node carries exactly the verbs declared for its path.
	byPath := map[string]*Node{}
	tree.Walk(func(n *Node) bool {
		byPath[n.Path] = n
		return true
	})
	for pair := doc.Oldest(); pair != nil; pair = pair.Next() {
		node, ok := byPath[pair.Key]
		require.True(t, ok, pair.Key)

		var want, got []string
		for op := pair.Value.Operations.Oldest(); op != nil; op = op.Next() {
			want = append(want, strings.ToUpper(op.Key))
		}
		for m := node.Methods.Oldest(); m != nil; m = m.Next() {
			got = append(got, m.Key)
		}
		assert.Equal(t, want, got, pair.Key)
	}

	orders, _ := tree.Paths.Get("orders")
	orderID, _ := orders.Paths.Get("{orderId}")
	assert.False(t, orderID.HasMethods(), "intermediate node is a pure routing node")
}

func TestBuild_Deterministic(t *testing.T) {
	doc := paths("/:get", "/a:get", "/a/{x}:put", "/b/c/d:post", "/a/{x}/e:delete")

	first, err := NewBuilder().Build(doc)
	require.NoError(t, err)
	second, err := NewBuilder().Build(doc)
	require.NoError(t, err)

	if diff := cmp.Diff(flatten(first), flatten(second)); diff != "" {
		t.Errorf("builds differ (-first +second):\n%s", diff)
	}
	assert.Equal(t, first.ResourceCount, second.ResourceCount)
}

func TestBuild_Empty(t *testing.T) {
	tree, err := NewBuilder().Build(nil)
	require.NoError(t, err)
	assert.Equal(t, 0, tree.Paths.Len())
	assert.Equal(t, 0, tree.ResourceCount)
}

func TestBuild_RootOnly(t *testing.T) {
	tree, err := NewBuilder().Build(paths("/:get,post"))
	require.NoError(t, err)

	assert.Equal(t, []string{"/ [GET POST]"}, flatten(tree))
	assert.Equal(t, 0, tree.ResourceCount)
}

func TestBuild_InvalidPaths(t *testing.T) {
	cases := []string{"user", "/user//x", "/user/", ""}
	for _, key := range cases {
		t.Run(key, func(t *testing.T) {
			_, err := NewBuilder().Build(paths(key + ":get"))
			require.Error(t, err)
			assert.True(t, ierrors.HasCode(err, ierrors.ErrCodeInvalidPath))
		})
	}
}

func TestWalk_SkipDescendants(t *testing.T) {
	tree, err := NewBuilder().Build(paths("/a/b/c:get", "/d:get"))
	require.NoError(t, err)

	var seen []string
	tree.Walk(func(n *Node) bool {
		seen = append(seen, n.Path)
		return n.Segment != "a"
	})
	assert.Equal(t, []string{"/a", "/d"}, seen)
}

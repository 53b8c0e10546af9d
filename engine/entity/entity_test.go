package entity

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type change struct {
	id     ObjectID
	change ChangeType
}

type recorder struct {
	changes []change
}

func (r *recorder) record(_ RetainedEntities, id Identifier, c ChangeType) {
	r.changes = append(r.changes, change{id: id.Object, change: c})
}

func newObject(t *testing.T, r RetainedEntities, typeName string) Identifier {
	t.Helper()
	typeID := r.TypeID(typeName)
	id := Identifier{Document: 1, Object: r.AssignObjectID(1, typeID), Type: typeID}
	require.NoError(t, r.CreateObject(id))
	return id
}

func childrenOf(t *testing.T, r RetainedEntities, id Identifier) []ObjectID {
	t.Helper()
	e, ok := r.Entity(id.Document, id.Object)
	require.True(t, ok)
	return e.Children
}

func parentOf(t *testing.T, r RetainedEntities, id Identifier) ObjectID {
	t.Helper()
	e, ok := r.Entity(id.Document, id.Object)
	require.True(t, ok)
	return e.Parent
}

func TestCreateObjectRequiresRegisteredType(t *testing.T) {
	r := NewRetainedEntities()
	err := r.CreateObject(Identifier{Document: 1, Object: 1, Type: 7})
	assert.ErrorIs(t, err, ErrUnknownType)

	id := newObject(t, r, "Light")
	assert.ErrorIs(t, r.CreateObject(id), ErrExists)
	assert.Equal(t, 1, r.Len())
	assert.Equal(t, "Light", r.TypeName(id.Type))
	assert.Equal(t, id.Type, r.TypeID("LIGHT"))
}

func TestObjectIDsAreNeverReused(t *testing.T) {
	r := NewRetainedEntities()
	typeID := r.TypeID("Light")
	require.NoError(t, r.CreateObject(Identifier{Document: 1, Object: 10, Type: typeID}))
	assert.Equal(t, ObjectID(11), r.AssignObjectID(1, typeID))

	require.NoError(t, r.DeleteObject(Identifier{Document: 1, Object: 10, Type: typeID}))
	assert.Equal(t, ObjectID(12), r.AssignObjectID(1, typeID))
}

func TestProperties(t *testing.T) {
	r := NewRetainedEntities()
	id := newObject(t, r, "Light")
	radius := r.PropertyID(id.Type, "Radius")
	assert.Equal(t, PropertyID(1), radius)
	assert.Equal(t, radius, r.PropertyID(id.Type, "radius"))
	assert.Equal(t, "Radius", r.PropertyName(id.Type, radius))
	assert.Zero(t, r.PropertyID(99, "Radius"))

	rec := &recorder{}
	require.NoError(t, r.RegisterCallback(id.Type, rec.record))

	require.NoError(t, r.SetProperty(id, PropertyInitializer{Property: radius, Value: NewValue(float32(2))}))
	v, ok := r.GetProperty(id, radius)
	assert.True(t, ok)
	f, _ := v.Float()
	assert.Equal(t, 2.0, f)

	require.NoError(t, r.SetProperty(id, PropertyInitializer{Property: 42, Value: NewValue(1)}))
	assert.Equal(t, []change{{id.Object, ChangeSetProperty}}, rec.changes, "unknown properties do not notify")

	_, ok = r.GetProperty(id, 42)
	assert.False(t, ok)
	assert.ErrorIs(t, r.SetProperty(Identifier{Document: 1, Object: 99, Type: id.Type}), ErrNotFound)
	assert.ErrorIs(t, r.RegisterCallback(99, rec.record), ErrUnknownType)
}

func TestSetParentKeepsLinksConsistent(t *testing.T) {
	r := NewRetainedEntities()
	a := newObject(t, r, "Group")
	b := newObject(t, r, "Group")
	c1 := newObject(t, r, "Light")
	c2 := newObject(t, r, "Light")
	c3 := newObject(t, r, "Light")

	require.NoError(t, r.SetParent(c1, a, -1))
	require.NoError(t, r.SetParent(c2, a, 99))
	require.NoError(t, r.SetParent(c3, a, 0))
	assert.Equal(t, []ObjectID{c3.Object, c1.Object, c2.Object}, childrenOf(t, r, a))
	assert.Equal(t, a.Object, parentOf(t, r, c1))

	require.NoError(t, r.SetParent(c1, b, -1))
	assert.Equal(t, []ObjectID{c3.Object, c2.Object}, childrenOf(t, r, a))
	assert.Equal(t, []ObjectID{c1.Object}, childrenOf(t, r, b))
	assert.Equal(t, b.Object, parentOf(t, r, c1))

	require.NoError(t, r.SetParent(c1, Identifier{Document: 1}, -1))
	assert.Empty(t, childrenOf(t, r, b))
	assert.Zero(t, parentOf(t, r, c1))
}

func TestSetParentRejects(t *testing.T) {
	r := NewRetainedEntities()
	a := newObject(t, r, "Group")
	b := newObject(t, r, "Group")
	child := newObject(t, r, "Light")
	require.NoError(t, r.SetParent(b, a, -1))

	other := child
	other.Document = 2
	assert.ErrorIs(t, r.SetParent(child, other, -1), ErrCrossDocument)
	assert.ErrorIs(t, r.SetParent(a, b, -1), ErrCycle)
	assert.ErrorIs(t, r.SetParent(a, a, -1), ErrCycle)

	wrongType := child
	wrongType.Type = a.Type
	assert.ErrorIs(t, r.SetParent(wrongType, a, -1), ErrTypeMismatch)

	require.NoError(t, r.SetParent(child, a, -1))
	missing := Identifier{Document: 1, Object: 999, Type: a.Type}
	assert.ErrorIs(t, r.SetParent(child, missing, -1), ErrNotFound)
	assert.Zero(t, parentOf(t, r, child), "a failed move still detaches the child")
	assert.Equal(t, []ObjectID{b.Object}, childrenOf(t, r, a))
}

func TestDeleteObjectUnlinks(t *testing.T) {
	r := NewRetainedEntities()
	root := newObject(t, r, "Group")
	mid := newObject(t, r, "Group")
	leaf := newObject(t, r, "Light")
	require.NoError(t, r.SetParent(mid, root, -1))
	require.NoError(t, r.SetParent(leaf, mid, -1))

	assert.ErrorIs(t, r.DeleteObject(Identifier{Document: 1, Object: mid.Object, Type: leaf.Type}), ErrTypeMismatch)
	require.NoError(t, r.DeleteObject(mid))

	assert.Empty(t, childrenOf(t, r, root))
	assert.Zero(t, parentOf(t, r, leaf))
	_, ok := r.Entity(1, mid.Object)
	assert.False(t, ok)
	assert.ErrorIs(t, r.DeleteObject(mid), ErrNotFound)
}

func TestChangesPropagateToAncestors(t *testing.T) {
	r := NewRetainedEntities()
	root := newObject(t, r, "Group")
	mid := newObject(t, r, "Group")
	leaf := newObject(t, r, "Light")
	require.NoError(t, r.SetParent(mid, root, -1))
	require.NoError(t, r.SetParent(leaf, mid, -1))

	groups, lights := &recorder{}, &recorder{}
	require.NoError(t, r.RegisterCallback(root.Type, groups.record))
	require.NoError(t, r.RegisterCallback(leaf.Type, lights.record))

	prop := r.PropertyID(leaf.Type, "Colour")
	require.NoError(t, r.SetProperty(leaf, PropertyInitializer{Property: prop, Value: ParseImplied("{1,0,0}")}))
	assert.Equal(t, []change{{leaf.Object, ChangeSetProperty}}, lights.changes)
	assert.Equal(t, []change{
		{mid.Object, ChangeChildSetProperty},
		{root.Object, ChangeChildSetProperty},
	}, groups.changes)

	groups.changes, lights.changes = nil, nil
	require.NoError(t, r.SetParent(leaf, root, -1))
	assert.Equal(t, []change{{leaf.Object, ChangeSetParent}}, lights.changes)
	assert.Equal(t, []change{
		{mid.Object, ChangeRemoveChild},
		{root.Object, ChangeHierarchy},
		{root.Object, ChangeAddChild},
	}, groups.changes)

	groups.changes, lights.changes = nil, nil
	require.NoError(t, r.DeleteObject(leaf))
	assert.Equal(t, []change{{leaf.Object, ChangeDelete}}, lights.changes)
	assert.Equal(t, []change{{root.Object, ChangeHierarchy}}, groups.changes)
}

func TestCallbacksMayReadTheGraph(t *testing.T) {
	r := NewRetainedEntities()
	typeID := r.TypeID("Light")
	var seen int
	require.NoError(t, r.RegisterCallback(typeID, func(entities RetainedEntities, id Identifier, c ChangeType) {
		seen = len(entities.FindEntitiesOfType(id.Type))
	}))
	newObject(t, r, "Light")
	newObject(t, r, "Light")
	assert.Equal(t, 2, seen)
}

func TestEntitySnapshotIsACopy(t *testing.T) {
	r := NewRetainedEntities()
	parent := newObject(t, r, "Group")
	child := newObject(t, r, "Light")
	require.NoError(t, r.SetParent(child, parent, -1))

	e, ok := r.Entity(1, parent.Object)
	require.True(t, ok)
	e.Children[0] = 12345
	assert.Equal(t, []ObjectID{child.Object}, childrenOf(t, r, parent))
}

func TestDeserializeParentAndChild(t *testing.T) {
	r := NewRetainedEntities()
	roots, err := Deserialize(strings.NewReader(`<Parent name="root"><Child x="5"/></Parent>`), r, 3)
	require.NoError(t, err)
	require.Len(t, roots, 1)
	assert.Equal(t, 2, r.Len())

	parent := roots[0]
	assert.Equal(t, DocumentID(3), parent.Document)
	children := childrenOf(t, r, parent)
	require.Len(t, children, 1)

	childType := r.TypeID("Child")
	child := Identifier{Document: 3, Object: children[0], Type: childType}
	assert.Equal(t, parent.Object, parentOf(t, r, child))

	x, ok := r.GetProperty(child, r.PropertyID(childType, "x"))
	require.True(t, ok)
	n, ok := x.Int()
	require.True(t, ok)
	assert.Equal(t, int64(5), n)

	name, ok := r.GetProperty(parent, r.PropertyID(parent.Type, "name"))
	require.True(t, ok)
	assert.Equal(t, "root", name.String())
}

func TestDeserializeOrderAndTyping(t *testing.T) {
	r := NewRetainedEntities()
	text := `
<Light shape="sphere" radius="2.5" colour="{1, 0.5, 0}" shadows="true"/>
<Group>
    <Light radius="1"/>
    <Group><Light radius="3"/></Group>
    <Light radius="4"/>
</Group>
`
	roots, err := Deserialize(strings.NewReader(text), r, 1)
	require.NoError(t, err)
	require.Len(t, roots, 2)
	assert.Equal(t, 6, r.Len())

	lightType := r.TypeID("light")
	radius := r.PropertyID(lightType, "radius")
	first := roots[0]
	v, _ := r.GetProperty(first, radius)
	assert.Equal(t, float32(2.5), v.Raw())
	v, _ = r.GetProperty(first, r.PropertyID(lightType, "colour"))
	assert.Equal(t, []float32{1, 0.5, 0}, v.Raw())
	v, _ = r.GetProperty(first, r.PropertyID(lightType, "shadows"))
	assert.Equal(t, true, v.Raw())

	children := childrenOf(t, r, roots[1])
	require.Len(t, children, 3)
	var radii []any
	for _, c := range []ObjectID{children[0], children[2]} {
		v, _ := r.GetProperty(Identifier{Document: 1, Object: c, Type: lightType}, radius)
		radii = append(radii, v.Raw())
	}
	assert.Equal(t, []any{int32(1), int32(4)}, radii, "children keep document order")

	nested, ok := r.Entity(1, children[1])
	require.True(t, ok)
	assert.Equal(t, r.TypeID("Group"), nested.Type)
	assert.Len(t, nested.Children, 1)
	assert.Less(t, nested.Children[0], nested.ID, "children are created before their parent")
}

func TestDeserializeErrors(t *testing.T) {
	r := NewRetainedEntities()
	_, err := Deserialize(strings.NewReader(`<Light><Light></Group>`), r, 1)
	assert.Error(t, err)

	_, err = Deserialize(strings.NewReader(`stray text`), NewRetainedEntities(), 1)
	assert.Error(t, err)

	roots, err := Deserialize(strings.NewReader(""), NewRetainedEntities(), 1)
	assert.NoError(t, err)
	assert.Empty(t, roots)
}

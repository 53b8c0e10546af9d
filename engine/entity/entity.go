// Package entity keeps a retained graph of editor objects. Objects are keyed by document and object id, carry a
// typed property bag and form a parent/child hierarchy whose links are kept consistent on both sides by every
// mutation.
package entity

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"sort"
	"sync"
)

type (
	DocumentID  uint64
	ObjectID    uint64
	TypeID      uint32
	PropertyID  uint32
	ChildListID uint32
)

var (
	ErrUnknownType   = errors.New("entity: unknown object type")
	ErrNotFound      = errors.New("entity: object not found")
	ErrExists        = errors.New("entity: object already exists")
	ErrTypeMismatch  = errors.New("entity: object type does not match")
	ErrCrossDocument = errors.New("entity: parent and child are in different documents")
	ErrCycle         = errors.New("entity: parent is a descendant of the child")
)

// Identifier names one object.
type Identifier struct {
	Document DocumentID
	Object   ObjectID
	Type     TypeID
}

func (id Identifier) String() string {
	return fmt.Sprintf("%d:%d (type %d)", id.Document, id.Object, id.Type)
}

// ChangeType describes a mutation reported to callbacks.
type ChangeType int

const (
	ChangeCreate ChangeType = iota
	ChangeDelete
	ChangeSetProperty
	ChangeChildSetProperty
	ChangeAddChild
	ChangeRemoveChild
	ChangeHierarchy
	ChangeSetParent
)

func (c ChangeType) String() string {
	switch c {
	case ChangeCreate:
		return "create"
	case ChangeDelete:
		return "delete"
	case ChangeSetProperty:
		return "set-property"
	case ChangeChildSetProperty:
		return "child-set-property"
	case ChangeAddChild:
		return "add-child"
	case ChangeRemoveChild:
		return "remove-child"
	case ChangeHierarchy:
		return "change-hierarchy"
	case ChangeSetParent:
		return "set-parent"
	}
	return "unknown"
}

// OnChangeFunc is called after an object of a registered type changed. Callbacks run after the mutation completed
// and may read the entity set.
type OnChangeFunc func(entities RetainedEntities, id Identifier, change ChangeType)

// PropertyInitializer assigns one property.
type PropertyInitializer struct {
	Property PropertyID
	Value    Value
}

// RetainedEntity is a snapshot of one object.
type RetainedEntity struct {
	Document   DocumentID
	ID         ObjectID
	Type       TypeID
	Parent     ObjectID
	Children   []ObjectID
	Properties map[PropertyID]Value
}

// Identifier returns the object's identifier.
func (e RetainedEntity) Identifier() Identifier {
	return Identifier{Document: e.Document, Object: e.ID, Type: e.Type}
}

// RetainedEntities is the retained object graph.
type RetainedEntities interface {
	// TypeID returns the id of an object type, registering the type on first use. Names are case-insensitive.
	//
	// Parameters:
	//   - name: the type name
	//
	// Returns:
	//   - TypeID: the type id
	TypeID(name string) TypeID

	// TypeName returns the name a type was registered with.
	//
	// Parameters:
	//   - id: the type id
	//
	// Returns:
	//   - string: the name, empty for unknown ids
	TypeName(id TypeID) string

	// PropertyID returns the id of a property of a type, registering it on first use.
	//
	// Parameters:
	//   - typeID: the type id
	//   - name: the property name
	//
	// Returns:
	//   - PropertyID: the property id, 0 if the type is unknown
	PropertyID(typeID TypeID, name string) PropertyID

	// PropertyName returns the name a property was registered with.
	//
	// Parameters:
	//   - typeID: the type id
	//   - prop: the property id
	//
	// Returns:
	//   - string: the name, empty for unknown ids
	PropertyName(typeID TypeID, prop PropertyID) string

	// ChildListID returns the id of a named child list of a type, registering it on first use.
	//
	// Parameters:
	//   - typeID: the type id
	//   - name: the child list name
	//
	// Returns:
	//   - ChildListID: the child list id, 0 if the type is unknown
	ChildListID(typeID TypeID, name string) ChildListID

	// AssignObjectID returns a fresh object id. Ids are never reused.
	//
	// Parameters:
	//   - doc: the document the object will live in
	//   - typeID: the object type
	//
	// Returns:
	//   - ObjectID: the id
	AssignObjectID(doc DocumentID, typeID TypeID) ObjectID

	// CreateObject creates an object with no parent.
	//
	// Parameters:
	//   - id: the new object's identifier
	//   - inits: initial property values
	//
	// Returns:
	//   - error: ErrUnknownType or ErrExists
	CreateObject(id Identifier, inits ...PropertyInitializer) error

	// DeleteObject deletes an object. It is removed from its parent and its children are detached.
	//
	// Parameters:
	//   - id: the object
	//
	// Returns:
	//   - error: ErrNotFound or ErrTypeMismatch
	DeleteObject(id Identifier) error

	// SetProperty assigns properties. Initializers naming unknown properties are skipped; callbacks run only if at
	// least one property was assigned.
	//
	// Parameters:
	//   - id: the object
	//   - inits: the values
	//
	// Returns:
	//   - error: ErrUnknownType or ErrNotFound
	SetProperty(id Identifier, inits ...PropertyInitializer) error

	// GetProperty reads one property.
	//
	// Parameters:
	//   - id: the object
	//   - prop: the property id
	//
	// Returns:
	//   - Value: the value
	//   - bool: false if the object or the property is missing
	GetProperty(id Identifier, prop PropertyID) (Value, bool)

	// SetParent moves child under parent at insertionPosition. A parent with object id 0 only detaches the child.
	// Negative or out of range positions append.
	//
	// Parameters:
	//   - child: the child object
	//   - parent: the new parent
	//   - insertionPosition: the index in the parent's child list
	//
	// Returns:
	//   - error: ErrCrossDocument, ErrNotFound, ErrTypeMismatch, ErrUnknownType or ErrCycle
	SetParent(child, parent Identifier, insertionPosition int) error

	// Entity returns a snapshot of an object.
	//
	// Parameters:
	//   - doc: the document
	//   - obj: the object id
	//
	// Returns:
	//   - RetainedEntity: the snapshot
	//   - bool: false if there is no such object
	Entity(doc DocumentID, obj ObjectID) (RetainedEntity, bool)

	// FindEntitiesOfType returns snapshots of every object of a type, ordered by document and object id.
	//
	// Parameters:
	//   - typeID: the type id
	//
	// Returns:
	//   - []RetainedEntity: the objects
	FindEntitiesOfType(typeID TypeID) []RetainedEntity

	// RegisterCallback adds a change callback for objects of a type.
	//
	// Parameters:
	//   - typeID: the type id
	//   - fn: the callback
	//
	// Returns:
	//   - error: ErrUnknownType if the type was never registered
	RegisterCallback(typeID TypeID, fn OnChangeFunc) error

	// Len returns the number of objects.
	Len() int
}

type entityKey struct {
	doc DocumentID
	obj ObjectID
}

type registeredType struct {
	properties *Interner
	childLists *Interner
	onChange   []OnChangeFunc
}

type notification struct {
	id     Identifier
	change ChangeType
	fns    []OnChangeFunc
}

type retainedEntities struct {
	mu           *sync.Mutex
	types        *Interner
	registered   map[TypeID]*registeredType
	objects      map[entityKey]*RetainedEntity
	nextObjectID ObjectID
}

var _ RetainedEntities = &retainedEntities{}

// NewRetainedEntities creates an empty object graph.
//
// Returns:
//   - RetainedEntities: the graph
func NewRetainedEntities() RetainedEntities {
	return &retainedEntities{
		mu:           &sync.Mutex{},
		types:        NewInterner(),
		registered:   make(map[TypeID]*registeredType),
		objects:      make(map[entityKey]*RetainedEntity),
		nextObjectID: 1,
	}
}

func (r *retainedEntities) TypeID(name string) TypeID {
	r.mu.Lock()
	defer r.mu.Unlock()
	id := TypeID(r.types.Intern(name))
	if _, ok := r.registered[id]; !ok {
		r.registered[id] = &registeredType{properties: NewInterner(), childLists: NewInterner()}
	}
	return id
}

func (r *retainedEntities) TypeName(id TypeID) string {
	name, _ := r.types.Name(uint32(id))
	return name
}

func (r *retainedEntities) PropertyID(typeID TypeID, name string) PropertyID {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.registered[typeID]
	if !ok {
		return 0
	}
	return PropertyID(t.properties.Intern(name))
}

func (r *retainedEntities) PropertyName(typeID TypeID, prop PropertyID) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.registered[typeID]
	if !ok {
		return ""
	}
	name, _ := t.properties.Name(uint32(prop))
	return name
}

func (r *retainedEntities) ChildListID(typeID TypeID, name string) ChildListID {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.registered[typeID]
	if !ok {
		return 0
	}
	return ChildListID(t.childLists.Intern(name))
}

func (r *retainedEntities) AssignObjectID(doc DocumentID, typeID TypeID) ObjectID {
	r.mu.Lock()
	defer r.mu.Unlock()
	id := r.nextObjectID
	r.nextObjectID++
	return id
}

func (r *retainedEntities) CreateObject(id Identifier, inits ...PropertyInitializer) error {
	r.mu.Lock()
	t, ok := r.registered[id.Type]
	if !ok {
		r.mu.Unlock()
		return fmt.Errorf("create %s: %w", id, ErrUnknownType)
	}
	key := entityKey{id.Document, id.Object}
	if _, exists := r.objects[key]; exists {
		r.mu.Unlock()
		return fmt.Errorf("create %s: %w", id, ErrExists)
	}

	obj := &RetainedEntity{
		Document:   id.Document,
		ID:         id.Object,
		Type:       id.Type,
		Properties: make(map[PropertyID]Value),
	}
	for _, init := range inits {
		setSingleProperty(obj, t, init)
	}
	r.objects[key] = obj
	if id.Object >= r.nextObjectID {
		r.nextObjectID = id.Object + 1
	}
	pending := r.collect(obj, ChangeCreate)
	r.mu.Unlock()

	r.dispatch(pending)
	return nil
}

func (r *retainedEntities) DeleteObject(id Identifier) error {
	r.mu.Lock()
	key := entityKey{id.Document, id.Object}
	obj, ok := r.objects[key]
	if !ok {
		r.mu.Unlock()
		return fmt.Errorf("delete %s: %w", id, ErrNotFound)
	}
	if obj.Type != id.Type {
		r.mu.Unlock()
		return fmt.Errorf("delete %s: %w", id, ErrTypeMismatch)
	}

	var pending []notification
	for _, c := range obj.Children {
		if child, ok := r.objects[entityKey{id.Document, c}]; ok {
			child.Parent = 0
			pending = append(pending, r.collect(child, ChangeSetParent)...)
		}
	}
	obj.Children = nil

	// the delete is reported to the old parent before the link is cut
	pending = append(pending, r.collect(obj, ChangeDelete)...)
	if parent, ok := r.objects[entityKey{id.Document, obj.Parent}]; ok && obj.Parent != 0 {
		parent.Children = slices.DeleteFunc(parent.Children, func(o ObjectID) bool { return o == id.Object })
	}
	obj.Parent = 0
	delete(r.objects, key)
	r.mu.Unlock()

	r.dispatch(pending)
	return nil
}

func (r *retainedEntities) SetProperty(id Identifier, inits ...PropertyInitializer) error {
	r.mu.Lock()
	t, ok := r.registered[id.Type]
	if !ok {
		r.mu.Unlock()
		return fmt.Errorf("set property %s: %w", id, ErrUnknownType)
	}
	obj, ok := r.objects[entityKey{id.Document, id.Object}]
	if !ok {
		r.mu.Unlock()
		return fmt.Errorf("set property %s: %w", id, ErrNotFound)
	}

	changed := false
	for _, init := range inits {
		changed = setSingleProperty(obj, t, init) || changed
	}
	var pending []notification
	if changed {
		pending = r.collect(obj, ChangeSetProperty)
	}
	r.mu.Unlock()

	r.dispatch(pending)
	return nil
}

func (r *retainedEntities) GetProperty(id Identifier, prop PropertyID) (Value, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	obj, ok := r.objects[entityKey{id.Document, id.Object}]
	if !ok {
		return Value{}, false
	}
	v, ok := obj.Properties[prop]
	return v, ok
}

func (r *retainedEntities) SetParent(child, parent Identifier, insertionPosition int) error {
	if child.Document != parent.Document {
		return fmt.Errorf("set parent of %s: %w", child, ErrCrossDocument)
	}

	r.mu.Lock()
	if _, ok := r.registered[child.Type]; !ok {
		r.mu.Unlock()
		return fmt.Errorf("set parent of %s: %w", child, ErrUnknownType)
	}
	childObj, err := r.lookup(child)
	if err != nil {
		r.mu.Unlock()
		return fmt.Errorf("set parent of %s: %w", child, err)
	}
	if parent.Object != 0 && r.isAncestorOrSelf(child.Object, child.Document, parent.Object) {
		r.mu.Unlock()
		return fmt.Errorf("set parent of %s to %s: %w", child, parent, ErrCycle)
	}

	var pending []notification
	if childObj.Parent != 0 {
		if old, ok := r.objects[entityKey{child.Document, childObj.Parent}]; ok {
			old.Children = slices.DeleteFunc(old.Children, func(o ObjectID) bool { return o == child.Object })
			pending = append(pending, r.collect(old, ChangeRemoveChild)...)
		}
		childObj.Parent = 0
	}

	if parent.Object == 0 {
		pending = append(pending, r.collect(childObj, ChangeSetParent)...)
		r.mu.Unlock()
		r.dispatch(pending)
		return nil
	}

	parentObj, err := r.lookup(parent)
	if err != nil {
		pending = append(pending, r.collect(childObj, ChangeSetParent)...)
		r.mu.Unlock()
		r.dispatch(pending)
		return fmt.Errorf("set parent of %s to %s: %w", child, parent, err)
	}

	if insertionPosition < 0 || insertionPosition >= len(parentObj.Children) {
		parentObj.Children = append(parentObj.Children, child.Object)
	} else {
		parentObj.Children = slices.Insert(parentObj.Children, insertionPosition, child.Object)
	}
	childObj.Parent = parentObj.ID

	pending = append(pending, r.collect(childObj, ChangeSetParent)...)
	pending = append(pending, r.collect(parentObj, ChangeAddChild)...)
	r.mu.Unlock()

	r.dispatch(pending)
	return nil
}

func (r *retainedEntities) Entity(doc DocumentID, obj ObjectID) (RetainedEntity, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.objects[entityKey{doc, obj}]
	if !ok {
		return RetainedEntity{}, false
	}
	return snapshot(e), true
}

func (r *retainedEntities) FindEntitiesOfType(typeID TypeID) []RetainedEntity {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []RetainedEntity
	for _, e := range r.objects {
		if e.Type == typeID {
			out = append(out, snapshot(e))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Document != out[j].Document {
			return out[i].Document < out[j].Document
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func (r *retainedEntities) RegisterCallback(typeID TypeID, fn OnChangeFunc) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.registered[typeID]
	if !ok {
		return fmt.Errorf("register callback for type %d: %w", typeID, ErrUnknownType)
	}
	t.onChange = append(t.onChange, fn)
	return nil
}

func (r *retainedEntities) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.objects)
}

func (r *retainedEntities) lookup(id Identifier) (*RetainedEntity, error) {
	obj, ok := r.objects[entityKey{id.Document, id.Object}]
	if !ok {
		return nil, ErrNotFound
	}
	if obj.Type != id.Type {
		return nil, ErrTypeMismatch
	}
	return obj, nil
}

// isAncestorOrSelf reports whether candidate is child itself or lies below it in the hierarchy.
func (r *retainedEntities) isAncestorOrSelf(child ObjectID, doc DocumentID, candidate ObjectID) bool {
	for id := candidate; id != 0; {
		if id == child {
			return true
		}
		e, ok := r.objects[entityKey{doc, id}]
		if !ok {
			return false
		}
		id = e.Parent
	}
	return false
}

// collect gathers the callbacks for a change of obj and the changes it implies for its ancestors. Property changes
// reach ancestors as ChildSetProperty; structural changes as ChangeHierarchy.
func (r *retainedEntities) collect(obj *RetainedEntity, change ChangeType) []notification {
	var out []notification
	for depth := 0; obj != nil && depth <= len(r.objects); depth++ {
		if t, ok := r.registered[obj.Type]; ok && len(t.onChange) > 0 {
			out = append(out, notification{
				id:     Identifier{Document: obj.Document, Object: obj.ID, Type: obj.Type},
				change: change,
				fns:    slices.Clone(t.onChange),
			})
		}

		switch change {
		case ChangeSetProperty, ChangeChildSetProperty:
			change = ChangeChildSetProperty
		case ChangeAddChild, ChangeRemoveChild, ChangeHierarchy, ChangeDelete:
			change = ChangeHierarchy
		default:
			return out
		}
		if obj.Parent == 0 {
			return out
		}
		obj = r.objects[entityKey{obj.Document, obj.Parent}]
	}
	return out
}

func (r *retainedEntities) dispatch(pending []notification) {
	for _, n := range pending {
		for _, fn := range n.fns {
			fn(r, n.id, n.change)
		}
	}
}

func setSingleProperty(obj *RetainedEntity, t *registeredType, init PropertyInitializer) bool {
	if init.Property == 0 || int(init.Property) > t.properties.Len() || init.Value.Raw() == nil {
		return false
	}
	obj.Properties[init.Property] = init.Value
	return true
}

func snapshot(e *RetainedEntity) RetainedEntity {
	out := *e
	out.Children = slices.Clone(e.Children)
	out.Properties = maps.Clone(e.Properties)
	return out
}

package models

// ToDo is a single item owned by exactly one User. ID is unique across the
// whole system and never changes once assigned.
type ToDo struct {
	ID       int64  `db:"id" json:"id"`
	Name     string `db:"name" json:"name"`
	Done     bool   `db:"done" json:"done"`
	Assignee User   `db:"-" json:"assignee"`
}

// OwnedBy reports whether u is the assignee of t.
func (t *ToDo) OwnedBy(u *User) bool {
	return t != nil && u != nil && t.Assignee.Name == u.Name
}

// Equal compares identity and state. The assignee is compared by name only.
func (t *ToDo) Equal(other *ToDo) bool {
	if t == nil || other == nil {
		return t == other
	}
	return t.ID == other.ID && t.Name == other.Name && t.Done == other.Done && t.Assignee.Equal(&other.Assignee)
}

// ToDoPatch describes a partial update. Nil fields leave the prior value untouched.
type ToDoPatch struct {
	Name *string
	Done *bool
}

// Empty reports whether the patch changes nothing.
func (p ToDoPatch) Empty() bool {
	return p.Name == nil && p.Done == nil
}

// Apply mutates t with the fields set in p.
func (p ToDoPatch) Apply(t *ToDo) {
	if p.Name != nil {
		t.Name = *p.Name
	}
	if p.Done != nil {
		t.Done = *p.Done
	}
}

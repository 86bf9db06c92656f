package grid

// stringTable interns cell text with reference counts, so a column of
// repeated labels stores each label once. id 0 means "no string".
type stringTable struct {
	ids    map[string]uint32
	values map[uint32]string
	refs   map[uint32]int
	nextID uint32
}

func newStringTable() *stringTable {
	return &stringTable{
		ids:    make(map[string]uint32),
		values: make(map[uint32]string),
		refs:   make(map[uint32]int),
		nextID: 1,
	}
}

// intern returns the id of s, adding it or taking another reference
func (st *stringTable) intern(s string) uint32 {
	if id, exists := st.ids[s]; exists {
		st.refs[id]++
		return id
	}

	id := st.nextID
	st.ids[s] = id
	st.values[id] = s
	st.refs[id] = 1
	st.nextID++
	return id
}

func (st *stringTable) lookup(id uint32) string {
	return st.values[id]
}

// release drops one reference. the string is forgotten with its last
// reference.
func (st *stringTable) release(id uint32) {
	s, exists := st.values[id]
	if !exists {
		return
	}
	st.refs[id]--
	if st.refs[id] > 0 {
		return
	}
	delete(st.ids, s)
	delete(st.values, id)
	delete(st.refs, id)
}

func (st *stringTable) references(id uint32) int {
	return st.refs[id]
}

func (st *stringTable) len() int {
	return len(st.ids)
}

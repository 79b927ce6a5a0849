package linedb

// Identity selects records for Find, FindOne, Exists, Delete and SaveReplacing.
// Create it with ByID, ByValue, ByPredicate or All.
type Identity interface {
	matches(r *Record) bool
}

type byID struct {
	id    any
	valid bool
}

func (m byID) matches(r *Record) bool {
	return m.valid && r.hasID && r.id == m.id
}

// ByID matches structured records whose "id" field equals id
func ByID(id any) Identity {
	key, ok := idKey(id)
	return byID{id: key, valid: ok}
}

type byValue struct {
	text string
}

func (m byValue) matches(r *Record) bool {
	return r.text == m.text
}

// ByValue matches records with the same serialized text as r.
// This is how raw records and records without id are addressed.
func ByValue(r Record) Identity {
	return byValue{text: r.text}
}

type byPredicate func(Record) bool

func (fn byPredicate) matches(r *Record) bool {
	return fn(*r)
}

// ByPredicate matches records for which fn returns true.
// fn is called with the store's internal lock held and must not call the store.
func ByPredicate(fn func(Record) bool) Identity {
	return byPredicate(fn)
}

// All matches every record
func All() Identity {
	return byPredicate(func(Record) bool { return true })
}

// idSet matches records whose id is one of the ids of recs
type idSet map[any]struct{}

func newIDSet(recs []Record) idSet {
	res := idSet{}
	for i := range recs {
		if recs[i].hasID {
			res[recs[i].id] = struct{}{}
		}
	}
	return res
}

func (m idSet) matches(r *Record) bool {
	if !r.hasID {
		return false
	}
	_, ok := m[r.id]
	return ok
}

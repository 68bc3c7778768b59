package datastore

// Record is an element of a document collection that can be matched by a
// named attribute, mirroring the JSON field names stored on disk.
type Record interface {
	// Attr returns the value of the named attribute.
	// ok is false if the record has no such attribute.
	Attr(key string) (value any, ok bool)
}

// Find returns the first record whose attribute key equals value.
// Collections are small (tens to low hundreds of entries) so this is a
// linear scan.
func Find[R Record](items []R, key string, value any) (R, bool) {
	for _, item := range items {
		if matches(item, key, value) {
			return item, true
		}
	}
	var zero R
	return zero, false
}

// Exists reports whether any record's attribute key equals value.
func Exists[R Record](items []R, key string, value any) bool {
	_, ok := Find(items, key, value)
	return ok
}

// Without returns items minus every record whose attribute key equals value,
// along with the number of records dropped. The input slice is not modified.
func Without[R Record](items []R, key string, value any) ([]R, int) {
	kept := make([]R, 0, len(items))
	for _, item := range items {
		if matches(item, key, value) {
			continue
		}
		kept = append(kept, item)
	}
	return kept, len(items) - len(kept)
}

// RemoveWhere drops every record of the collection selected by field whose
// attribute key equals value, then persists the dataset.
//
// Returns the number of records removed. When nothing matches the document is
// still saved, matching the behaviour of a plain Update.
func RemoveWhere[D any, R Record](d *Dataset[D], field func(doc *D) *[]R, key string, value any) (int, error) {
	var removed int
	err := d.Update(func(doc *D) error {
		items := field(doc)
		*items, removed = Without(*items, key, value)
		return nil
	})
	if err != nil {
		return 0, err
	}
	return removed, nil
}

func matches[R Record](item R, key string, value any) bool {
	v, ok := item.Attr(key)
	return ok && v == value
}

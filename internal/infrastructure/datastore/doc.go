// Package datastore provides durable JSON document storage for RF Socket Core.
//
// Each dataset (sockets, users) is one JSON document on disk, mirrored by an
// in-memory copy owned by a Dataset. The in-memory copy is never a package
// level global: callers hold the *Dataset and reach the document only through
// View and Update.
//
// # Write Model
//
//	Update(fn)
//	   │  lock dataset
//	   ▼
//	deep copy ──▶ fn(copy) ──▶ marshal ──▶ temp file ──▶ fsync ──▶ rename
//	                                                               │
//	                                       swap in-memory document ◀┘
//
// The in-memory document is only replaced after the rename succeeds, so a
// failed write leaves memory and disk agreeing on the previous state. A
// concurrent reader of the file sees either the old or the new document,
// never a partial one.
//
// # Thread Safety
//
// Every Dataset has its own mutex, held across the whole
// load→validate→mutate→save sequence of an Update. Datasets never share a lock.
//
// IncrementCounter and RemoveWhere are single-step writes. The socket
// registry and the users store compose the same steps (Increment, Without)
// with their uniqueness checks inside one Update, so the check and the
// write share the lock; they never call the standalone forms.
//
// # Usage
//
//	ds := datastore.New(dir, "socket", func() socketDoc { return socketDoc{DefaultBits: 24} })
//	existed, err := ds.Load()
//	err = ds.Update(func(doc *socketDoc) error {
//	    doc.Sockets = append(doc.Sockets, s)
//	    return nil
//	})
package datastore

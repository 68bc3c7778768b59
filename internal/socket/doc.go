// Package socket provides the Socket Registry: the persisted catalogue of
// remote-switchable RF power sockets and the invariants that keep it
// consistent.
//
// # Architecture
//
//	┌─────────────────────────────────────────────────────────────┐
//	│                      Socket Registry                        │
//	│                                                             │
//	│  ┌──────────────────┐    ┌──────────────────┐               │
//	│  │     Registry     │    │    Validation    │               │
//	│  │  (registry.go)   │───▶│ (validation.go)  │               │
//	│  │                  │    │                  │               │
//	│  │ • Add / Delete   │    │ • presence       │               │
//	│  │ • Get / Resolve  │    │ • uniqueness     │               │
//	│  │ • id assignment  │    │ • bits / repeat  │               │
//	│  └──────────────────┘    └──────────────────┘               │
//	│           │                                                 │
//	└───────────│─────────────────────────────────────────────────┘
//	            ▼
//	┌──────────────────────────┐
//	│  datastore.Dataset       │
//	│  (sockets.json)          │
//	└──────────────────────────┘
//
// Every mutation runs inside a single datastore Update, so validation and
// the write it guards see the same document. Concurrent adds therefore never
// share an id, and two concurrent adds of one name produce exactly one
// success.
//
// # Identifiers
//
// current_socket_id is the next id to hand out. Ids are never reused: a
// deleted socket's id stays retired.
//
// # Usage
//
//	ds := socket.NewDataset(cfg.Store.DataDir, socket.Defaults{Bits: 24, Repeat: 5, AllOffCode: 1234})
//	reg := socket.NewRegistry(ds)
//	if err := reg.Load(ctx); err != nil {
//	    return err
//	}
//	s, err := reg.AddSocket(ctx, socket.Candidate{Name: "lamp", OnCode: ptr(111), OffCode: ptr(222)})
package socket

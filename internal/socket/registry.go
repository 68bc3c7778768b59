package socket

import (
	"context"
	"fmt"
	"strings"

	"github.com/nerrad567/rfsocket-core/internal/apperr"
	"github.com/nerrad567/rfsocket-core/internal/events"
	"github.com/nerrad567/rfsocket-core/internal/infrastructure/datastore"
)

// DatasetName is the store name of the registry document.
const DatasetName = "sockets"

// Logger defines the logging interface used by the Registry.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// NewDataset creates the registry dataset stored at dir/sockets.json.
// defaults seed the document on first run only; an existing file keeps its
// own values.
func NewDataset(dir string, defaults Defaults) *datastore.Dataset[Document] {
	return datastore.New(dir, DatasetName, func() Document {
		return NewDocument(defaults)
	})
}

// Registry manages the socket catalogue on top of a persisted dataset.
//
// All public methods are thread-safe. Returned sockets are copies; callers
// can safely modify them.
type Registry struct {
	ds        *datastore.Dataset[Document]
	logger    Logger
	publisher events.Publisher
}

// NewRegistry creates a registry over ds. Call Load before use; Load
// rejects a stored document that breaks the registry invariants.
func NewRegistry(ds *datastore.Dataset[Document]) *Registry {
	ds.SetValidator(validateDocument)
	return &Registry{
		ds:        ds,
		logger:    noopLogger{},
		publisher: events.Nop{},
	}
}

// SetLogger sets the logger for the registry.
func (r *Registry) SetLogger(logger Logger) {
	r.logger = logger
}

// SetPublisher sets where registry events are sent.
func (r *Registry) SetPublisher(p events.Publisher) {
	r.publisher = p
}

// Load reads the registry document, creating it with defaults on first run.
// A malformed file, or one that breaks the registry invariants (duplicate
// ids, names or codes, out-of-range bits or repeat, a current_socket_id not
// ahead of every id), fails with datastore.ErrCorrupt.
func (r *Registry) Load(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	existed, err := r.ds.Load()
	if err != nil {
		return fmt.Errorf("loading socket registry: %w", err)
	}

	count, err := r.Count(ctx)
	if err != nil {
		return err
	}
	r.logger.Info("socket registry loaded", "path", r.ds.Path(), "existed", existed, "sockets", count)
	return nil
}

// AddSocket validates c and stores it under the next socket id.
//
// Validation and insert happen under the dataset lock. A rejected candidate
// yields an INVALID_REQUEST *apperr.Error listing every offending field, and
// nothing is written.
func (r *Registry) AddSocket(ctx context.Context, c Candidate) (*Socket, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var created Socket
	err := r.ds.Update(func(doc *Document) error {
		if err := validateCandidate(doc, c); err != nil {
			return err
		}

		id := doc.CurrentSocketID
		datastore.Increment(&doc.CurrentSocketID)

		created = Socket{
			ID:          id,
			Name:        strings.TrimSpace(c.Name),
			Description: c.Description,
			Location:    c.Location,
			OnCode:      *c.OnCode,
			OffCode:     *c.OffCode,
			Bits:        c.Bits,
			Repeat:      c.Repeat,
		}
		doc.Sockets = append(doc.Sockets, created)
		return nil
	})
	if err != nil {
		return nil, wrapStoreErr("adding socket", err)
	}

	r.logger.Info("socket added", "socket_id", created.ID, "socket_name", created.Name)
	r.publisher.Publish(ctx, events.ForSocket(events.TypeSocketCreated, created.ID, created.Name))
	return created.DeepCopy(), nil
}

// GetSocket returns the socket with the given id.
func (r *Registry) GetSocket(ctx context.Context, id int) (*Socket, error) {
	return r.find(ctx, FieldID, id)
}

// GetSocketByName returns the socket with the given name. Surrounding
// whitespace is ignored, as it is when a socket is added.
func (r *Registry) GetSocketByName(ctx context.Context, name string) (*Socket, error) {
	return r.find(ctx, FieldName, strings.TrimSpace(name))
}

// Resolve returns the socket ref points at. ref.ID takes precedence over
// ref.Name. An empty ref is an INVALID_REQUEST naming both fields; a ref that
// matches nothing is NOT_FOUND naming the field that was used.
func (r *Registry) Resolve(ctx context.Context, ref Ref) (*Socket, error) {
	switch {
	case ref.ID != nil:
		return r.GetSocket(ctx, *ref.ID)
	case strings.TrimSpace(ref.Name) != "":
		return r.GetSocketByName(ctx, ref.Name)
	default:
		return nil, apperr.Invalid("socket_id or socket_name required").
			AddField(FieldID, apperr.ReasonNotProvided).
			AddField(FieldName, apperr.ReasonNotProvided)
	}
}

// DeleteSocket removes the socket with the given id and returns it.
// Deleting an absent id fails with NOT_FOUND and writes nothing.
// The id is never reassigned.
func (r *Registry) DeleteSocket(ctx context.Context, id int) (*Socket, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var removed Socket
	err := r.ds.Update(func(doc *Document) error {
		s, ok := datastore.Find(doc.Sockets, FieldID, id)
		if !ok {
			return apperr.NotFound("socket not found", FieldID)
		}
		removed = s
		doc.Sockets, _ = datastore.Without(doc.Sockets, FieldID, id)
		return nil
	})
	if err != nil {
		return nil, wrapStoreErr("deleting socket", err)
	}

	r.logger.Info("socket deleted", "socket_id", removed.ID, "socket_name", removed.Name)
	r.publisher.Publish(ctx, events.ForSocket(events.TypeSocketDeleted, removed.ID, removed.Name))
	return removed.DeepCopy(), nil
}

// ListSockets returns every live socket in insertion order.
func (r *Registry) ListSockets(ctx context.Context) ([]Socket, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var out []Socket
	err := r.ds.View(func(doc *Document) error {
		out = make([]Socket, 0, len(doc.Sockets))
		for i := range doc.Sockets {
			out = append(out, *doc.Sockets[i].DeepCopy())
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("listing sockets: %w", err)
	}
	return out, nil
}

// Defaults returns the registry-wide bits, repeat and all-off code.
func (r *Registry) Defaults(ctx context.Context) (Defaults, error) {
	if err := ctx.Err(); err != nil {
		return Defaults{}, err
	}

	var d Defaults
	err := r.ds.View(func(doc *Document) error {
		d = doc.Defaults()
		return nil
	})
	if err != nil {
		return Defaults{}, fmt.Errorf("reading registry defaults: %w", err)
	}
	return d, nil
}

// Count returns the number of live sockets.
func (r *Registry) Count(ctx context.Context) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	var n int
	err := r.ds.View(func(doc *Document) error {
		n = len(doc.Sockets)
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("counting sockets: %w", err)
	}
	return n, nil
}

func (r *Registry) find(ctx context.Context, field string, value any) (*Socket, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var (
		found Socket
		ok    bool
	)
	err := r.ds.View(func(doc *Document) error {
		found, ok = datastore.Find(doc.Sockets, field, value)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("looking up socket: %w", err)
	}
	if !ok {
		return nil, apperr.NotFound("socket not found", field)
	}
	return found.DeepCopy(), nil
}

// wrapStoreErr passes classified errors through untouched and adds context
// to store failures.
func wrapStoreErr(op string, err error) error {
	if _, ok := apperr.As(err); ok {
		return err
	}
	return fmt.Errorf("%s: %w", op, err)
}

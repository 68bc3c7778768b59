package socket

import "strconv"

// Field names as they appear in the persisted document and in error fields.
const (
	FieldID      = "socket_id"
	FieldName    = "socket_name"
	FieldOnCode  = "on_code"
	FieldOffCode = "off_code"
	FieldBits    = "bits"
	FieldRepeat  = "repeat"
)

// Radio parameter limits and registry defaults.
const (
	MinBits = 4
	MaxBits = 256

	DefaultBits       = 24
	DefaultRepeat     = 5
	DefaultAllOffCode = 1234
)

// Socket is one registered RF power socket.
//
// Bits and Repeat are nil when the socket uses the registry defaults.
type Socket struct {
	ID          int    `json:"socket_id"`
	Name        string `json:"socket_name"`
	Description string `json:"description,omitempty"`
	Location    string `json:"location,omitempty"`
	OnCode      int    `json:"on_code"`
	OffCode     int    `json:"off_code"`
	Bits        *int   `json:"bits,omitempty"`
	Repeat      *int   `json:"repeat,omitempty"`
}

// Attr implements datastore.Record.
func (s Socket) Attr(key string) (any, bool) {
	switch key {
	case FieldID:
		return s.ID, true
	case FieldName:
		return s.Name, true
	case FieldOnCode:
		return s.OnCode, true
	case FieldOffCode:
		return s.OffCode, true
	default:
		return nil, false
	}
}

// DeepCopy creates an independent copy of the socket.
func (s *Socket) DeepCopy() *Socket {
	if s == nil {
		return nil
	}
	cp := *s
	if s.Bits != nil {
		v := *s.Bits
		cp.Bits = &v
	}
	if s.Repeat != nil {
		v := *s.Repeat
		cp.Repeat = &v
	}
	return &cp
}

// EffectiveBits returns the socket's bit width, or the default when unset.
func (s *Socket) EffectiveBits(d Defaults) int {
	if s.Bits != nil {
		return *s.Bits
	}
	return d.Bits
}

// EffectiveRepeat returns the socket's repeat count, or the default when unset.
func (s *Socket) EffectiveRepeat(d Defaults) int {
	if s.Repeat != nil {
		return *s.Repeat
	}
	return d.Repeat
}

// Candidate is a socket proposed for insertion. Pointer fields distinguish
// "not provided" from zero.
type Candidate struct {
	Name        string `json:"socket_name"`
	Description string `json:"description,omitempty"`
	Location    string `json:"location,omitempty"`
	OnCode      *int   `json:"on_code"`
	OffCode     *int   `json:"off_code"`
	Bits        *int   `json:"bits,omitempty"`
	Repeat      *int   `json:"repeat,omitempty"`
}

// Ref identifies a socket by id or by name. ID wins when both are set.
type Ref struct {
	ID   *int   `json:"socket_id,omitempty"`
	Name string `json:"socket_name,omitempty"`
}

// ByID returns a Ref selecting the socket with the given id.
func ByID(id int) Ref {
	return Ref{ID: &id}
}

// ByName returns a Ref selecting the socket with the given name.
func ByName(name string) Ref {
	return Ref{Name: name}
}

// ParseRef reads a path or topic segment: an integer selects by id,
// anything else by name.
func ParseRef(s string) Ref {
	if id, err := strconv.Atoi(s); err == nil {
		return ByID(id)
	}
	return ByName(s)
}

// Defaults are the registry-wide radio parameters.
type Defaults struct {
	Bits       int `json:"default_bits"`
	Repeat     int `json:"default_repeat"`
	AllOffCode int `json:"all_off_code"`
}

// Document is the persisted registry state.
type Document struct {
	DefaultRepeat   int      `json:"default_repeat"`
	DefaultBits     int      `json:"default_bits"`
	AllOffCode      int      `json:"all_off_code"`
	CurrentSocketID int      `json:"current_socket_id"`
	Sockets         []Socket `json:"sockets"`
}

// Defaults returns the document's registry-wide parameters.
func (d *Document) Defaults() Defaults {
	return Defaults{Bits: d.DefaultBits, Repeat: d.DefaultRepeat, AllOffCode: d.AllOffCode}
}

// NewDocument returns an empty registry document using defaults.
// Zero values in defaults fall back to the package defaults.
func NewDocument(defaults Defaults) Document {
	if defaults.Bits == 0 {
		defaults.Bits = DefaultBits
	}
	if defaults.Repeat == 0 {
		defaults.Repeat = DefaultRepeat
	}
	if defaults.AllOffCode == 0 {
		defaults.AllOffCode = DefaultAllOffCode
	}
	return Document{
		DefaultRepeat: defaults.Repeat,
		DefaultBits:   defaults.Bits,
		AllOffCode:    defaults.AllOffCode,
		Sockets:       []Socket{},
	}
}

package socket

import (
	"errors"
	"fmt"
	"strings"

	"github.com/nerrad567/rfsocket-core/internal/apperr"
	"github.com/nerrad567/rfsocket-core/internal/infrastructure/datastore"
)

// validateCandidate checks c against the live sockets in doc.
// Every violation is collected; the result is nil only when c can be stored.
func validateCandidate(doc *Document, c Candidate) error {
	verr := apperr.Invalid("invalid socket create request")

	name := strings.TrimSpace(c.Name)
	switch {
	case name == "":
		verr.AddField(FieldName, apperr.ReasonNotProvided)
	case datastore.Exists(doc.Sockets, FieldName, name):
		verr.AddField(FieldName, apperr.ReasonNotUnique)
	}

	checkCode(doc, verr, FieldOnCode, c.OnCode, nil)
	checkCode(doc, verr, FieldOffCode, c.OffCode, c.OnCode)

	if c.Bits != nil && !ValidBits(*c.Bits) {
		verr.AddField(FieldBits, apperr.ReasonInvalidValue)
	}
	if c.Repeat != nil && *c.Repeat <= 0 {
		verr.AddField(FieldRepeat, apperr.ReasonInvalidValue)
	}

	return verr.OrNil()
}

// checkCode validates one transmit code. A code collides with any live
// socket's on or off code, and with sibling (the candidate's other code).
func checkCode(doc *Document, verr *apperr.Error, field string, code, sibling *int) {
	switch {
	case code == nil:
		verr.AddField(field, apperr.ReasonNotProvided)
	case *code < 0:
		verr.AddField(field, apperr.ReasonInvalidValue)
	case codeInUse(doc.Sockets, *code), sibling != nil && *sibling == *code:
		verr.AddField(field, apperr.ReasonNotUnique)
	}
}

func codeInUse(sockets []Socket, code int) bool {
	return datastore.Exists(sockets, FieldOnCode, code) ||
		datastore.Exists(sockets, FieldOffCode, code)
}

// ValidBits reports whether bits is a bit width the transmitter accepts.
func ValidBits(bits int) bool {
	return bits >= MinBits && bits <= MaxBits
}

// validateDocument checks a stored registry document: defaults usable by
// the transmitter, every socket well formed, ids, names and codes unique,
// and the id counter ahead of every issued id.
func validateDocument(doc *Document) error {
	var errs []error
	if !ValidBits(doc.DefaultBits) {
		errs = append(errs, fmt.Errorf("default_bits %d outside [%d,%d]", doc.DefaultBits, MinBits, MaxBits))
	}
	if doc.DefaultRepeat <= 0 {
		errs = append(errs, fmt.Errorf("default_repeat %d not positive", doc.DefaultRepeat))
	}
	if doc.AllOffCode < 0 {
		errs = append(errs, fmt.Errorf("all_off_code %d negative", doc.AllOffCode))
	}

	ids := make(map[int]bool, len(doc.Sockets))
	names := make(map[string]bool, len(doc.Sockets))
	codes := make(map[int]bool, 2*len(doc.Sockets))
	for _, s := range doc.Sockets {
		where := fmt.Sprintf("socket %d", s.ID)
		switch {
		case s.ID < 0:
			errs = append(errs, fmt.Errorf("%s: negative id", where))
		case ids[s.ID]:
			errs = append(errs, fmt.Errorf("%s: duplicate id", where))
		case s.ID >= doc.CurrentSocketID:
			errs = append(errs, fmt.Errorf("%s: id not below current_socket_id %d", where, doc.CurrentSocketID))
		}
		ids[s.ID] = true

		name := strings.TrimSpace(s.Name)
		switch {
		case name == "" || name != s.Name:
			errs = append(errs, fmt.Errorf("%s: invalid name %q", where, s.Name))
		case names[name]:
			errs = append(errs, fmt.Errorf("%s: duplicate name %q", where, name))
		}
		names[name] = true

		for _, code := range []int{s.OnCode, s.OffCode} {
			switch {
			case code < 0:
				errs = append(errs, fmt.Errorf("%s: negative code %d", where, code))
			case codes[code]:
				errs = append(errs, fmt.Errorf("%s: duplicate code %d", where, code))
			}
			codes[code] = true
		}

		if s.Bits != nil && !ValidBits(*s.Bits) {
			errs = append(errs, fmt.Errorf("%s: bits %d outside [%d,%d]", where, *s.Bits, MinBits, MaxBits))
		}
		if s.Repeat != nil && *s.Repeat <= 0 {
			errs = append(errs, fmt.Errorf("%s: repeat %d not positive", where, *s.Repeat))
		}
	}
	return errors.Join(errs...)
}

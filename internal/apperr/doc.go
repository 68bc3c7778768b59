// Package apperr defines the error taxonomy shared by the socket registry,
// the command dispatcher, the users dataset and the HTTP façade.
//
// Every failure a caller can see resolves to an *Error naming its Kind and,
// for validation failures, every offending field with a Reason:
//
//	err := registry.AddSocket(ctx, candidate)
//	if errors.Is(err, apperr.ErrInvalidRequest) {
//	    var e *apperr.Error
//	    errors.As(err, &e)
//	    for _, f := range e.Fields {
//	        fmt.Println(f.Field, f.Reason) // socket_name NOT_UNIQUE
//	    }
//	}
//
// Validation is never fail-fast: producers collect all field errors into one
// INVALID_REQUEST.
package apperr

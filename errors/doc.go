/*
Package errors provides semantic error types for the RecordStore library.

Every condition a caller can recover from has a sentinel value and, where the
condition carries context, a typed error that matches the sentinel through
errors.Is():

	var (
	    ErrMissingRequiredFields = errors.New("missing required fields")
	    ErrNoPrimaryKey          = errors.New("no primary key")
	    ErrDuplicateIdentity     = errors.New("duplicate identity")
	    ErrDuplicateEntry        = errors.New("duplicate entry")
	    ErrUnsupportedOperation  = errors.New("unsupported operation")
	    ErrInvalidFieldAccess    = errors.New("invalid field access")
	)

Usage:

	rec, err := orders.Create(ctx, map[string]any{"id": "2", "invoice_no": "INV-1"})
	if err != nil {
	    var dup *errors.DuplicateEntryError
	    if stderrors.As(err, &dup) {
	        // dup.Field == "invoice_no", dup.Value == "INV-1"
	    }
	    return err
	}

Errors returned by the underlying store client (timeouts, connection
failures) are never converted into one of these kinds.
*/
package errors

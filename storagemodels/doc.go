/*
Package storagemodels defines the query and streaming types shared by the
record store and its tools.

RangeParams:
Selects records from a type's ordered index by score:

	params, err := storagemodels.NewRange().
	    InLastDays(7).
	    Latest().
	    WithLimit(20).
	    Build()

Scores default to the creation time of a record (see TimeScore), so the time
helpers select records by age.

StreamResult:
Results from streaming operations with metadata:

	type StreamResult[T any] struct {
	    Item  T                 // The loaded record
	    Raw   map[string]string // Raw record hash
	    Error error             // Item-specific error, if any
	    Meta  StreamMeta        // Metadata about this item
	}

StreamOptions:
Configuration for streaming behavior:

	opts := []StreamOption{
	    WithBufferSize(100),
	    WithPageSize(25),
	    WithMaxRetries(3),
	    WithProgressHandler(progressFunc),
	}
*/
package storagemodels

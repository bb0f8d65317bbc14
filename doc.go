/*
Package recordstore maps declared record types onto a key-value store with
string, hash, set, list and ordered set values and server side scripts.

A record type is declared once with package schema and registered with a
Store. Each record is a hash of its embedded fields; standalone fields live
under their own keys; each type keeps an ordered index of primary keys and a
reverse lookup hash per unique field. See package keys for the layout.

Field classes:
  - Primary key and unique fields are guarded by atomic scripts. Creating a
    record claims the primary key in the ordered index, then all unique
    values at once; a lost claim fails with DuplicateIdentity or
    DuplicateEntry naming the field, and leaves nothing claimed.
  - Plain fields are embedded and read from memory.
  - Standalone fields return a command proxy bound to their key.
  - Auto fields return a synchronized container (package auto) that mirrors
    the remote set, list, counter or string.
  - Foreign fields hold the primary key of another record. Foreign resolves
    them lazily; records reached from one load share a traversal, so cycles
    resolve to the same instances.

Basic Usage:

	store := recordstore.New(conn, recordstore.WithLogger(log))
	orders := store.MustRegister(ctx, schema.Declare("Order",
	    schema.NewField("id", schema.String, schema.PrimaryKey()),
	    schema.NewField("invoice_no", schema.String, schema.Unique()),
	    schema.NewField("lines", schema.List, schema.Auto()),
	))

	order, err := orders.Create(ctx, map[string]any{"id": "1", "invoice_no": "INV-1"})
	if errors.IsDuplicateEntry(err) {
	    // another order holds INV-1
	}
	lines, _ := order.AutoList(ctx, "lines")
	lines.Append(ctx, "widget")

	order.Batch(ctx, func(ctx context.Context) error {
	    return order.Update(ctx, map[string]any{"invoice_no": "INV-2"})
	})

Atomicity is limited to single commands and the two claim scripts. Every
other multi step operation can interleave with other clients.
*/
package recordstore

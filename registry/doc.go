/*
Package registry holds the record types known to one store connection.

Registering a declaration resolves it into a schema.Type, loads the atomic
scripts the type needs and records the store's text encoding:

	reg := registry.New(conn)
	entry, err := reg.Register(ctx, schema.Declare("Order",
	    schema.NewField("id", schema.String, schema.PrimaryKey()),
	    schema.NewField("invoice_no", schema.String, schema.Unique()),
	))

Every type loads the primary key claim script. The uniqueness claim script is
loaded only for types that declare unique fields.

Foreign fields name their target type as a string; Lookup resolves that name
at access time, so mutually referencing types can be registered in any order.

The registry is append-only and safe for concurrent use. It should be
populated during initialization.
*/
package registry

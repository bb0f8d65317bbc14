/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

/*
Package schema describes record types.

A Declaration lists the fields of a record type and the declarations it
extends. Resolve linearizes the inheritance chain, applies the field
invariants and classifies every field exactly once:

	ClassPrimaryKey  the single identifying field, claimed in the ordered index
	ClassUnique      embedded, guarded by a reverse lookup hash
	ClassPlain       embedded in the record hash
	ClassProxy       standalone, exposed as a command proxy
	ClassAuto        standalone, mirrored by a synchronized container

Required and Foreign are orthogonal tags. The resolved Type is immutable and
safe for concurrent use.

Example:

	user := schema.Declare("User",
		schema.NewField("id", schema.String, schema.PrimaryKey()),
		schema.NewField("email", schema.String, schema.Unique()),
		schema.NewField("tags", schema.Set, schema.Auto()),
		schema.NewField("manager", schema.String, schema.References("User")),
	)
*/
package schema

/*
Package ddb implements datastore.Conn on a single DynamoDB table.

The table needs a string partition key PK and a string sort key SK. Every
store key becomes one partition; the sort key tells what an item holds:

	PK = "User:@42"   SK = "h#name"        hash field, value in V
	PK = "User:tags"  SK = "s#admin"       set member
	PK = "Q:@1"       SK = "l#8000..0001"  list element, value in V
	PK = "User:_records" SK = "z#42"       ordered set member, score in S
	PK = "Visits:@1"  SK = "v"             string in V or counter in N

Atomic scripts:
The primary key claim is a PutItem conditioned on the member being absent.
The uniqueness claim is one TransactWriteItems call with a conditional Put per
reverse lookup entry; when the transaction is cancelled, the first item whose
condition failed gives the conflicting position. The uniqueness release is a
DeleteItem per entry conditioned on the entry still naming the record.

Only the scripts are atomic. List pushes read the current head or tail
before writing, and ordered set ranges are selected in memory, so this
backend suits moderate collection sizes.

Usage:

	conn, err := ddb.New(ctx, ddb.Options{Region: "us-east-1", Table: "records"})
	if err != nil {
		return err
	}
	store := recordstore.New(conn)
*/
package ddb

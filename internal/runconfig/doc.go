// Package runconfig translates configuration documents to and from the
// running_config table of a running-config database.
//
// Each leaf of a Document is one row: table, record and field name plus the
// JSON-encoded value. Write replaces the whole table in one transaction; Read
// reassembles the document; Render prints it in CLI form. Decode and Encode
// convert between stored payloads and Documents.
package runconfig

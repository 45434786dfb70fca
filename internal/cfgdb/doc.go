// Package cfgdb stores saved configurations in the config table of the
// configuration database.
//
// At most one row of kind "startup" may exist. The table carries no unique
// key, so callers find the existing row and choose Update or Insert
// themselves. Writes accept only the startup kind and set only the fields a
// caller supplies through RowFields.
package cfgdb

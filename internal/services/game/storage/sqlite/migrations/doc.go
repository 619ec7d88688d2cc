// Package migrations embeds the SQL schema history of the SQLite log store.
package migrations

// Package model holds the entities produced by a scrape cycle: tags,
// markets, events and the snapshot that groups them. Values carry no
// behaviour beyond read-only derivations used by renderers and exporters.
package model

// Package history keeps a SQLite ledger of finished conversion jobs.
//
// The watcher records one row per job through a Recorder; the "mediaconv
// history" command reads them back with Recent. Schema changes ship as
// numbered files under migrations/ and are applied on Open.
package history

// Package main hosts the mediaconv CLI.
//
// `watch` runs the converter daemon in the foreground; `check`, `history`,
// and `config` are one-shot helpers that read the same configuration file.
// Behaviour lives in the internal packages; commands only parse flags and
// render output.
package main

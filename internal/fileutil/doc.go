// Package fileutil holds the filesystem primitives used around a conversion:
// waiting for an incoming file to stop growing, moving sources into the
// archive folder (across devices when needed), and removing partial output.
package fileutil

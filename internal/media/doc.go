// Package media defines the progress events shared by the transcoder
// bindings. A transcoder returns its progress as a lazy, finite sequence that
// may only be consumed once; Drain runs such a sequence to completion.
package media

// Package drapto adapts the Drapto Go library into a transcoder.
//
// Drapto always writes Matroska output named after the input stem. The
// library runs in its own goroutine and its Reporter callbacks are forwarded
// as media.Progress events through a one-shot iterator; callbacks that carry
// no progress are logged instead.
package drapto

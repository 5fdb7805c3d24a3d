// File: internal/concurrency/doc.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Bounded worker pool for hioload-http. A fixed set of reusable worker
// goroutines consumes one FIFO task queue of bounded capacity, so total
// processing concurrency and queued work are both explicit ceilings rather
// than per-connection goroutine growth.
package concurrency

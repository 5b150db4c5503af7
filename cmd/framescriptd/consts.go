package main

import "time"

// shutdownTimeout bounds how long serve waits for in-flight decode tasks to
// drain during a graceful shutdown before giving up.
const shutdownTimeout = 10 * time.Second

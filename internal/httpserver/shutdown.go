package httpserver

import "time"

// ShutdownTimeout bounds how long Serve drains in-flight requests after its
// context is canceled.
var ShutdownTimeout = 15 * time.Second

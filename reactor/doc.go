// Copyright (c) 2025
// Author: momentics <momentics@gmail.com>

// Package reactor provides cross-platform epoll (Linux) / IOCP (Windows)
// backends implementing api.Reactor, and MainLoop, the callback-dispatch
// adapter the proxy node's data thread drives to learn when its
// transport's wakeup fd is readable.
package reactor

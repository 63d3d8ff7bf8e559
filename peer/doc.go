// Package peer makes the component tree visible to other processes.
//
// A Publisher is registered as the component.Observer of the runtime. Every
// created or destroyed component is announced as a JSON Event on
// structure.<peer>.elements, and requests on structure.<peer>.list are
// answered with a snapshot of the whole tree:
//
//	nats req structure.finroc-structure.list ''
//
// Events are fire-and-forget core NATS messages. A Publisher created without a
// connection (no --connect given) is disabled and costs nothing.
package peer

// Package control implements the control plane: a local socket through which
// a separate process drives the UI without sharing memory.
//
// Each request line is turned into an asynchronous round trip: the server
// publishes the action to UI subscribers, then waits (bounded by the reply
// timeout) for the UI to answer through SubmitReply, and writes the answer
// back on the same connection.
//
// Correlation uses a single pending slot. Installing a reply channel replaces
// whatever was there, so when two requests overlap the earlier caller loses
// its reply and receives the timeout payload instead. Requests on one
// connection are processed strictly one after another.
//
// Wire format, one JSON object per line in each direction:
//
//	-> {"action": "open_tab", "payload": {"shell": "wsl"}}
//	<- {"tab_id": "tab-3"}
//	<- {"error": "Timeout or no response"}
package control

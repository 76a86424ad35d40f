// Package script runs untrusted Lua against a transaction.
//
// A Sandbox opens only the base, table, string, math and coroutine
// libraries. Loader, filesystem, process and debug facilities are replaced
// by stubs that raise a SCRIPT_SANDBOX violation; a violation fails the
// run even when the script catches it with pcall.
//
// Scripts see three globals:
//
//	input        the caller's JSON value
//	null         stands in for JSON null and SQL NULL
//	transaction  get / create / rollback, serviced by a Host
//
// Host failures are raised as catchable Lua errors. tostring(err) gives
// the message.
package script

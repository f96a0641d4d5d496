// Package audit implements async dispatching of security events such as
// refresh-token reuse and foreign-cookie logins.
//
// # Components
//
//   - [Sink]: event consumer. See [ChannelSink], [JSONWriterSink], [LogrusSink]
//     and [Fanout].
//   - [Dispatcher]: buffered async relay, dropping or blocking when full.
//   - [Event]: one audit record.
//
// # What this package must NOT do
//
//   - Decide which events to emit; the Engine does.
//   - Import goSession or any sibling internal package.
package audit

/*
Package session keeps the serve-mode registry of concurrent conversations,
one agent per session.

Conversation state lives only in process memory, so a session is pinned to
the replica that created it. The manager serializes exchanges per session
with reference-counted local mutexes, and can additionally hold a
distributed lease so a misrouted request on another replica waits instead
of racing.
*/
package session

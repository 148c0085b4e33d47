/*
Package session serializes dialog work per user.

The Manager guards each user ID with a reference-counted mutex so one
inbound event is handled at a time per user while different users
proceed in parallel. WithSession wraps a unit of work with load (or
create), lazy idle expiry, and save, so callers only mutate the
session they are handed.
*/
package session

/*
Package domain contains the core domain models of the parada bot.

It defines the fundamental entities of the dialog: transit stops and
their upcoming departures, per-user favorites, the per-user session
with its dialog state, and the inbound Event / outbound Reply
envelopes exchanged with transports. This package is kept pure and
free of external dependencies like I/O or persistence, following
Hexagonal Architecture principles.

# Key Entities

  - Stop: A transit stop as published by the upstream feed.
  - Departure: One upcoming arrival at a stop, in relative minutes.
  - Session: The runtime snapshot of one user's dialog (state, busy
    marker, last selected stop).
  - Event: A normalized inbound user interaction (text, button tap or
    command).
  - Reply: The outbound message plus an optional keyboard descriptor.
*/
package domain

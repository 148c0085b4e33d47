/*
Package ports defines the interfaces (ports) that connect the parada
core to the outside world, following Hexagonal Architecture.

Driven ports (implemented by adapters):

  - SessionStore: persistence for per-user dialog sessions.
  - FavoritesStore: persistence for per-user favorite stops.
  - TransitFeed: the upstream source of stops and departures.

The package also ships contract test suites (RunSessionStoreContract,
RunFavoritesStoreContract) so every adapter proves the same semantics.
*/
package ports

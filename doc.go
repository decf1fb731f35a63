// Package bridgekit keeps reducer-managed state stores consistent between
// a host process and remote content surfaces that can only exchange
// serialized text messages.
//
// The host constructs one Bridge, registers stores into it, and registers
// a surface for every remote endpoint. Once a surface signals readiness
// with a BRIDGE_READY message, the bridge pushes a full STATE_INIT
// snapshot for every registered store, then keeps the surface current
// with patches or fresh snapshots as the stores commit new state.
// Surface-originated EVENT messages are routed into the matching store's
// producer, passing through the event listener hub first.
//
// The bridge is transport-agnostic: it is handed already-established
// message channels and opens no connections of its own.
package bridgekit

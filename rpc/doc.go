// Package rpc provides the communication layer between a participant and the lock
// server. The lock server itself is not part of this module; the packages below only
// cover the participant side of the protocol.
//
// The package is organized into several subpackages:
//
//   - common: Core data structures and utilities used across the RPC system,
//     including the lock frame protocol, the participant configuration, and logging.
//
//   - transport: The boundary to the network that carries lock frames, plus an
//     in-process implementation.
//
//   - serializer: Frame serialization with multiple format options (Binary, JSON, GOB)
//     for converting between Message objects and byte arrays.
//
//   - client: Connects a client lock manager to the lock server: outbound requests and
//     recall commits, inbound awards, recalls and resync queries.
package rpc

// Package common provides the data structures shared between the participant side
// packages of the lock cache: the lock frame protocol, the participant configuration
// and the logger used by every package.
//
// Key Components:
//
//   - Message: Core data structure for every lock frame exchanged between a participant
//     and the lock server, with a flexible structure that adapts to the frame type.
//     Includes factory methods for all frames (request, award, recall, recall commit,
//     recall committed, resync) and for the local lock and unlock steps used by replay scripts.
//
//   - MessageType: Enumeration of all frame types, categorized into participant to
//     server frames, server to participant frames, local steps and control messages.
//
//   - ClientConfig: Configuration of a participant (identity, sweep interval, frame
//     timeout, log level). Converts to the lockmgr.Config of the client lock manager.
//
//   - Logger: Custom logging implementation that plugs into Dragonboat's logger
//     factory and provides consistent formatting across the application.
package common

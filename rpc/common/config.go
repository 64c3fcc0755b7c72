package common

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/ValentinKolb/dLock/lib/lockmgr"
)

// --------------------------------------------------------------------------
// Participant configuration struct
// --------------------------------------------------------------------------

// ClientConfig holds all configuration parameters of a participant.
type ClientConfig struct {
	// identity of the participant in the cluster
	ParticipantID uint64

	// idle locks are collected every SweepIntervalSecond, 0 disables the sweeper
	SweepIntervalSecond int

	// timeout for a single frame sent to the lock server
	TimeoutSecond int

	// Logging configuration
	LogLevel string
}

// Timeout returns the frame timeout as a duration
func (c *ClientConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSecond) * time.Second
}

// ToManagerConfig converts the ClientConfig to the config of the client lock manager
func (c *ClientConfig) ToManagerConfig() lockmgr.Config {
	return lockmgr.Config{
		ParticipantID: lockmgr.ParticipantID(c.ParticipantID),
		SweepInterval: time.Duration(c.SweepIntervalSecond) * time.Second,
	}
}

// String returns a formatted string representation of the client configuration
func (c *ClientConfig) String() string {
	var sb strings.Builder

	// Create helper functions for consistent formatting
	addSection := func(title string) {
		sb.WriteString("\n")
		sb.WriteString(fmt.Sprintf("%s\n", strings.ToUpper(title)))
	}

	addField := func(name, value string) {
		sb.WriteString(fmt.Sprintf("  %-22s: %s\n", name, value))
	}

	// Participant
	addSection("Participant")
	addField("Participant ID", strconv.FormatUint(c.ParticipantID, 10))
	if c.SweepIntervalSecond > 0 {
		addField("Sweep Interval", fmt.Sprintf("%d sec", c.SweepIntervalSecond))
	} else {
		addField("Sweep Interval", "disabled")
	}

	// Server
	addSection("Lock Server")
	addField("Timeout", fmt.Sprintf("%d sec", c.TimeoutSecond))

	// Logging configuration
	addSection("Logging")
	addField("Log Level", c.LogLevel)

	return sb.String()
}

package util

import (
	"fmt"
	"strings"

	"github.com/ValentinKolb/dLock/rpc/common"
	"github.com/ValentinKolb/dLock/rpc/serializer"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	// Wrap is the number of characters to Wrap the help text at
	Wrap int = 50
)

// WrapString wraps a string at Wrap characters
func WrapString(text string) string {
	var wrappedLines []string
	var currentLine strings.Builder
	lineWidth := 0

	for _, word := range strings.Fields(text) {
		wordWidth := len(word)

		// Check if we need to wrap
		if lineWidth > 0 && lineWidth+1+wordWidth > Wrap {
			wrappedLines = append(wrappedLines, currentLine.String())
			currentLine.Reset()
			lineWidth = 0
		}

		// Add space before word (if not first word on line)
		if lineWidth > 0 {
			currentLine.WriteString(" ")
			lineWidth++
		}

		// Add the word
		currentLine.WriteString(word)
		lineWidth += wordWidth
	}

	// Add any remaining text
	if currentLine.Len() > 0 {
		wrappedLines = append(wrappedLines, currentLine.String())
	}

	return strings.Join(wrappedLines, "\n")
}

// SetupParticipantFlags adds the flags of a participant to a command
func SetupParticipantFlags(cmd *cobra.Command) {
	key := "participant"
	cmd.PersistentFlags().Uint64(key, 1, WrapString("The ID of the participant in the lock cluster"))

	key = "sweep-interval"
	cmd.PersistentFlags().Int(key, 0, WrapString("Interval in seconds in which idle locks are collected (0 disables the sweeper)"))

	key = "timeout"
	cmd.PersistentFlags().Int(key, 10, WrapString("The timeout in seconds for a single frame sent to the lock server"))
}

// InitClientConfig initializes configuration from environment variables
func InitClientConfig() {
	// load env files
	_ = godotenv.Load(".env")
	_ = godotenv.Load(".env.local")

	// initialize viper
	viper.SetEnvPrefix("dlock")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv() // read in environment variables that match
}

// GetClientConfig reads the participant configuration from viper
func GetClientConfig() *common.ClientConfig {
	return &common.ClientConfig{
		ParticipantID:       viper.GetUint64("participant"),
		SweepIntervalSecond: viper.GetInt("sweep-interval"),
		TimeoutSecond:       viper.GetInt("timeout"),
		LogLevel:            viper.GetString("log-level"),
	}
}

// GetSerializer creates a serializer based on configuration
func GetSerializer() (serializer.IRPCSerializer, error) {
	name := viper.GetString("serializer")
	s, ok := serializer.FromName(name)
	if !ok {
		return nil, fmt.Errorf("invalid serializer %s", name)
	}
	return s, nil
}

// BindCommandFlags binds a command's flags to viper
func BindCommandFlags(cmd *cobra.Command) error {
	return viper.BindPFlags(cmd.Flags())
}

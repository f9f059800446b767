package ports

// MessageIntake is the boundary where the transport layer hands inbound
// messages to the moderation pipeline.
type MessageIntake interface {
	// Start begins accepting messages. It returns once the intake is running.
	Start() error

	// Stop drains in-flight work and shuts the intake down.
	Stop() error
}

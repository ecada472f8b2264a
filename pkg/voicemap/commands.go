package voicemap

import "github.com/teslashibe/voicemap/pkg/command"

// Actions bound by the default command set.
const (
	ActionAnnounceLocation command.ActionID = "announce_location"
	ActionNavigate         command.ActionID = "navigate"
	ActionReportHazard     command.ActionID = "report_hazard"
	ActionEmergency        command.ActionID = "emergency"
	ActionHome             command.ActionID = "home"
	ActionStartTracking    command.ActionID = "start_tracking"
	ActionStopTracking     command.ActionID = "stop_tracking"
)

// DefaultCommands returns the built-in voice commands in match order.
func DefaultCommands() command.Registry {
	return command.MustRegistry(
		command.Binding{Phrase: "where am i", Action: ActionAnnounceLocation, Description: "Announce current location"},
		command.Binding{Phrase: "navigate", Action: ActionNavigate, Description: "Start navigation mode"},
		command.Binding{Phrase: "report hazard", Action: ActionReportHazard, Description: "Report a hazard or obstacle"},
		command.Binding{Phrase: "emergency", Action: ActionEmergency, Description: "Activate emergency assistance"},
		command.Binding{Phrase: "home", Action: ActionHome, Description: "Return to home screen"},
		command.Binding{Phrase: "start tracking", Action: ActionStartTracking, Description: "Start location tracking"},
		command.Binding{Phrase: "stop tracking", Action: ActionStopTracking, Description: "Stop location tracking"},
	)
}

// Replies spoken by the default actions.
const (
	MsgWelcome         = "Welcome to Voice Map. Your accessible navigation assistant."
	MsgNavigation      = "Navigation mode activated. Please specify your destination."
	MsgHazardMode      = "Hazard reporting mode. Please describe the hazard you want to report."
	MsgEmergencyMode   = "Emergency mode activated. Press the emergency button or say activate emergency for immediate assistance."
	MsgHome            = "Returned to home screen."
	MsgTrackingStarted = "Location tracking started."
	MsgTrackingStopped = "Location tracking stopped."
)

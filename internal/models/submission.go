package models

import "time"

// InputMode identifies how a standup update was captured.
type InputMode string

const (
	InputModeText  InputMode = "text"
	InputModeVoice InputMode = "voice"
)

// Submission is one team member's standup input for one day. It is created
// by the intake boundary and never mutated afterwards.
type Submission struct {
	ID           string    `json:"id"`
	TeamMemberID string    `json:"team_member_id"`
	TeamID       string    `json:"team_id"`
	Timestamp    time.Time `json:"timestamp"`
	RawText      string    `json:"raw_text,omitempty"`
	RawAudioRef  string    `json:"raw_audio_ref,omitempty"`
	InputMode    InputMode `json:"input_mode"`
}

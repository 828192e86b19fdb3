package domain

// Phase names one state of the per-trial phase sequence.
type Phase string

const (
	PhaseIdle             Phase = "idle"
	PhaseEncodingFixation Phase = "encoding_fixation"
	PhaseEncoding         Phase = "encoding_sequence"
	PhaseCueFixation      Phase = "cue_fixation"
	PhaseCuePlayback      Phase = "cue_playback"
	PhaseRetention        Phase = "retention_delay"
	PhaseNeutralImpulse   Phase = "neutral_impulse"
	PhasePostImpulse      Phase = "post_impulse_fixation"
	PhaseGlobalReport     Phase = "global_report"
	PhaseLocalReport      Phase = "local_report"
	PhaseInterReport      Phase = "inter_report_gap"
	PhaseResponseHold     Phase = "response_display_hold"
	PhaseFeedback         Phase = "feedback"
	PhaseInterTrial       Phase = "inter_trial_gap"
	PhaseDone             Phase = "done"
)

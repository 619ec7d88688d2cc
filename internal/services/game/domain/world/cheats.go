package world

// Cheats are session-wide rule relaxations. They are part of durable state
// and change only through commands.
type Cheats struct {
	SandboxMode                     bool `json:"sandbox_mode,omitempty"`
	DisableTrainLengthLimit         bool `json:"disable_train_length_limit,omitempty"`
	IgnoreResearchStatus            bool `json:"ignore_research_status,omitempty"`
	ShowVehiclesFromOtherTrackTypes bool `json:"show_vehicles_from_other_track_types,omitempty"`
	BuildInPauseMode                bool `json:"build_in_pause_mode,omitempty"`
	NoMoney                         bool `json:"no_money,omitempty"`
}

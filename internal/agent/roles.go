package agent

// Stock agent names. They double as log labels in a simulation run.
const (
	DataAnalyst      = "Data Analyst"
	MedicCoordinator = "Medic Coordinator"
	LogisticsManager = "Logistics Manager"
	Critic           = "Critic"
)

// Profile is the persona of a stock agent.
type Profile struct {
	Name         string
	Role         string
	Goal         string
	Backstory    string
	SystemPrompt string
}

// Options returns the agent options that apply the profile.
func (p Profile) Options() []Option {
	opts := []Option{WithProfile(p.Role, p.Goal, p.Backstory)}
	if p.SystemPrompt != "" {
		opts = append(opts, WithSystemPrompt(p.SystemPrompt))
	}
	return opts
}

var profiles = map[string]Profile{
	DataAnalyst: {
		Name:      DataAnalyst,
		Role:      "Senior Geospatial Analyst",
		Goal:      "identify disaster impact zones using satellite data",
		Backstory: "expert in remote sensing and disaster assessment",
	},
	MedicCoordinator: {
		Name:      MedicCoordinator,
		Role:      "Medical Triage Coordinator",
		Goal:      "prioritize urgent medical needs from field reports and social signals",
		Backstory: "emergency physician who has run field hospitals after earthquakes and floods",
	},
	LogisticsManager: {
		Name: LogisticsManager,
		Role: "Logistics Manager",
		Goal: "plan safe and efficient supply routes",
	},
	Critic: {
		Name: Critic,
		Role: "Critic",
		Goal: "audit disaster response plans and identify unsafe errors",
		SystemPrompt: "You are a Critic Agent. Your goal is to audit disaster response plans, " +
			"identify unsafe decisions or errors, and provide constructive feedback.",
	},
}

// ProfileFor returns the stock profile for name.
func ProfileFor(name string) (Profile, bool) {
	p, ok := profiles[name]
	return p, ok
}

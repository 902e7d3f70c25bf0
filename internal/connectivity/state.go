package connectivity

// State is the two-valued network availability signal.
type State interface {
	isConnectivityState()
}

// Available means the network collaborator reported a working connection.
type Available struct{}

// Unavailable means the last probe failed or no probe has completed yet.
type Unavailable struct{}

func (Available) isConnectivityState()   {}
func (Unavailable) isConnectivityState() {}

// StateName returns "available" or "unavailable".
func StateName(state State) string {
	if _, ok := state.(Available); ok {
		return "available"
	}

	return "unavailable"
}

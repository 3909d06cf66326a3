package server

// Channels bundles the controller-side request endpoints for the servers
// that accept cross-thread work. The endpoints stay with the controller
// while the servers themselves relocate between runners.
type Channels struct {
	Draw   DrawChannel
	Update UpdateChannel
}

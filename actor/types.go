package actor

type poisonPill struct{}

// Initialized is the first message a receiver gets, before Started.
type Initialized struct{}

// Started is delivered once the process is registered and accepting messages.
type Started struct{}

// Stopped is the last message a receiver gets. The inbox is already closed.
type Stopped struct{}

package console

// Command is a side effect requested by Reduce. The Runner executes it
// off the update loop and reports back with at most one Action. A nil
// Command means no side effect.
type Command interface {
	isCommand()
}

// LoadInstalled asks the Manager for installed toolchains.
type LoadInstalled struct {
	Epoch uint64
}

// LoadAvailable asks the Manager for the install catalog.
type LoadAvailable struct {
	Epoch uint64
}

// Operate runs a mutating operation. Target may be empty for install and
// update.
type Operate struct {
	Epoch  uint64
	Type   OpType
	Target string
}

// LoadPending asks the Manager for a session interrupted by a previous run.
type LoadPending struct {
	Epoch uint64
}

// AckPending marks a displayed pending session so it is not reported again.
type AckPending struct {
	ID string
}

// CopyText copies Text to the system clipboard.
type CopyText struct {
	Text string
}

// Quit ends the program.
type Quit struct{}

func (LoadInstalled) isCommand() {}
func (LoadAvailable) isCommand() {}
func (Operate) isCommand()       {}
func (LoadPending) isCommand()   {}
func (AckPending) isCommand()    {}
func (CopyText) isCommand()      {}
func (Quit) isCommand()          {}

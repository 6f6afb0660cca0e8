package console

import "fmt"

// Retry is a replay plan for a failed or cancelled session.
type Retry struct {
	Op     OpType
	Target string
}

// Reload reports whether the retry reloads the installed list instead of
// running a mutating operation.
func (r Retry) Reload() bool {
	return r.Op == OpList || r.Op == OpDetail
}

// PlanRetry replays the operation type and target recorded in s. Sessions
// whose operation needs an explicit target but recorded none cannot be
// replayed and return ErrNoRetryTarget.
func PlanRetry(s OperationSession) (Retry, error) {
	if s.Type.NeedsTarget() && s.Target == "" {
		return Retry{}, fmt.Errorf("retry %s: %w", s.Type, ErrNoRetryTarget)
	}
	return Retry{Op: s.Type, Target: s.Target}, nil
}

// noTargetSession is the session recorded when a retry has nothing to
// replay.
func noTargetSession(s OperationSession) OperationSession {
	return OperationSession{
		Type:    s.Type,
		Target:  s.Target,
		State:   Cancelled{Message: "No target to retry"},
		LogPath: s.LogPath,
	}
}

// progressMessage is the progress screen text for dispatching op.
func progressMessage(op OpType, target string) string {
	switch op {
	case OpInstall:
		if target == "" {
			return "Installing latest stable..."
		}
		return "Installing " + target + "..."
	case OpUpdate:
		if target == "" {
			return "Updating in-use toolchain..."
		}
		return "Updating " + target + "..."
	case OpRemove:
		return "Removing " + target + "..."
	case OpSwitch:
		return "Switching to " + target + "..."
	default:
		return loadingInstalled
	}
}

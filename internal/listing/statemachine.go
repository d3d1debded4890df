package listing

// Role is the capability the caller was granted at session start. It is
// resolved once by the identity layer and passed into every lifecycle
// operation; business logic never re-derives it from an email string.
type Role string

const (
	RoleUser     Role = "user"
	RoleOperator Role = "admin"
)

// Action is an actor-triggered transition request. The machine has no
// hidden or time-based transitions.
type Action string

const (
	ActionSubmit   Action = "submit"
	ActionQuote    Action = "quote"
	ActionAccept   Action = "accept"
	ActionReject   Action = "reject"
	ActionMarkPaid Action = "mark_paid"
	ActionDelete   Action = "delete"
)

// edge describes one row of the transition table.
type edge struct {
	role Role
	from Status // empty means any source status
	to   Status
}

// Quoting and deletion are deliberately permitted from any state: the
// operator can always overwrite a prior offer to keep negotiating after a
// rejection instead of hard-locking the flow.
var transitions = map[Action]edge{
	ActionSubmit:   {role: RoleUser, from: StatusAwaitingProposal, to: StatusAwaitingProposal},
	ActionQuote:    {role: RoleOperator, to: StatusProposalSent},
	ActionAccept:   {role: RoleUser, from: StatusProposalSent, to: StatusProposalAccepted},
	ActionReject:   {role: RoleUser, from: StatusProposalSent, to: StatusProposalRejected},
	ActionMarkPaid: {role: RoleOperator, from: StatusProposalAccepted, to: StatusPaid},
	ActionDelete:   {role: RoleOperator},
}

// Next validates an actor-triggered transition and returns the resulting
// status. It is evaluated synchronously before any store write, so a
// failed check aborts the action with no partial effect.
//
// MarkPaid on an already paid listing is accepted as a no-op transition to
// the same terminal state, which makes the operation idempotent.
func Next(current Status, action Action, role Role) (Status, error) {
	t, ok := transitions[action]
	if !ok {
		return "", &InvalidTransitionError{From: current, Action: action, Role: role}
	}
	if role != t.role {
		return "", &InvalidTransitionError{From: current, Action: action, Role: role}
	}
	if action == ActionMarkPaid && current == StatusPaid {
		return StatusPaid, nil
	}
	if t.from != "" && current != t.from {
		return "", &InvalidTransitionError{From: current, Action: action, Role: role}
	}
	if action == ActionDelete {
		// Removal has no target status; callers erase the document.
		return current, nil
	}
	return t.to, nil
}

// Allowed reports whether the action is legal for the role from the given
// status, without computing the target.
func Allowed(current Status, action Action, role Role) bool {
	_, err := Next(current, action, role)
	return err == nil
}

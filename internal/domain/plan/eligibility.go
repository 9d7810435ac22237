package plan

// Eligibility predicates over current plan state. These are the guards
// the lifecycle services consult before mutating anything; they never
// touch persistence.

// CanBeModified: the plan accepts state-changing operations at all.
func CanBeModified(p *Plan) bool {
	if p == nil {
		return false
	}
	return !p.IsDeleted() && !p.IsCanceled()
}

// CanBeReinstated: only a canceled, non-deleted plan can be reinstated,
// independent of any other status history.
func CanBeReinstated(p *Plan) bool {
	if p == nil {
		return false
	}
	return p.IsCanceled() && !p.IsDeleted()
}

// transferable holds the shared rule set behind CanBeTransferred and
// CanBeUpgraded: the plan must be live (active or not yet started) and
// not suspended, expired, canceled or deleted.
func transferable(p *Plan) bool {
	if p == nil {
		return false
	}
	switch p.Status {
	case StatusActive, StatusUpcoming:
		return true
	}
	return false
}

// CanBeTransferred: the plan can be moved to another template.
func CanBeTransferred(p *Plan) bool { return transferable(p) }

// CanBeUpgraded: same rule set as transfer; kept as a separate named
// predicate so call sites read as what they mean. Billing treats the two
// differently downstream.
func CanBeUpgraded(p *Plan) bool { return transferable(p) }

package collision

import (
	"fmt"
	"time"
)

// Decision is the per-filename state for a detected collision. It starts
// pending and moves to exactly one of overwrite or skip, driven only by
// explicit external input. There is no default and no timeout resolution.
type Decision string

const (
	DecisionPending   Decision = "pending"
	DecisionOverwrite Decision = "overwrite"
	DecisionSkip      Decision = "skip"
)

// ParseDecision validates caller-supplied decision strings.
func ParseDecision(s string) (Decision, error) {
	switch Decision(s) {
	case DecisionOverwrite, DecisionSkip:
		return Decision(s), nil
	}
	return "", fmt.Errorf("invalid decision %q (expected overwrite or skip)", s)
}

// Action is what the commit phase does for one planned file.
type Action string

const (
	ActionInsert Action = "insert"
	ActionUpdate Action = "update"
)

// PlanItem is one file cleared for the write phase. For updates it carries
// the identity that must survive the overwrite.
type PlanItem struct {
	Filename string
	Action   Action

	// ExistingID and ExistingCreatedAt are set for ActionUpdate only.
	ExistingID        string
	ExistingCreatedAt *time.Time
}

// UploadPlan is the serializable outcome of resolving a batch. Items are
// ordered as the input filenames were; Skipped and Pending files never
// reach storage or metadata writes.
type UploadPlan struct {
	Items   []PlanItem
	Skipped []string
	Pending []string
}

// Ready reports whether the plan can proceed to the write phase for its
// Items: any pending collision holds the whole batch back.
func (p UploadPlan) Ready() bool {
	return len(p.Pending) == 0
}

// Resolve builds the commit plan for a batch:
//
//	no collision            -> insert
//	collision + overwrite   -> update, carrying the existing id and capture time
//	collision + skip        -> excluded entirely
//	collision + no decision -> excluded, flagged pending
//
// Pure function: same inputs, same plan.
func Resolve(filenames []string, collisions map[string]Record, decisions map[string]Decision) UploadPlan {
	var plan UploadPlan

	for _, name := range filenames {
		rec, collides := collisions[name]
		if !collides {
			plan.Items = append(plan.Items, PlanItem{Filename: name, Action: ActionInsert})
			continue
		}

		switch decisions[name] {
		case DecisionOverwrite:
			plan.Items = append(plan.Items, PlanItem{
				Filename:          name,
				Action:            ActionUpdate,
				ExistingID:        rec.ExistingID,
				ExistingCreatedAt: rec.CreatedAt,
			})
		case DecisionSkip:
			plan.Skipped = append(plan.Skipped, name)
		default:
			plan.Pending = append(plan.Pending, name)
		}
	}

	return plan
}

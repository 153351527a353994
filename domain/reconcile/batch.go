package reconcile

import (
	"context"

	"github.com/example/shopping-list/domain/product"
)

// Applier persists reconciliation instructions. The returned product is the
// stored state after the mutation.
type Applier interface {
	ApplyInsert(ctx context.Context, in Instruction) (product.Product, error)
	ApplyMerge(ctx context.Context, in Instruction) (product.Product, error)
}

// Status is the per-candidate outcome of a batch.
type Status string

const (
	StatusInserted Status = "inserted"
	StatusMerged   Status = "merged"
	StatusRejected Status = "rejected"
)

// Outcome reports what happened to one candidate of a batch.
type Outcome struct {
	Index     int
	Candidate Candidate
	Status    Status
	ProductID string
	// Reason is set for rejected candidates.
	Reason error
	// Duplicate flags a match among several products with the same name.
	Duplicate bool
}

// Report is the result of ReconcileAll, one outcome per candidate in input order.
type Report struct {
	Outcomes []Outcome
}

// Count returns the number of outcomes with status s.
func (r Report) Count(s Status) int {
	n := 0
	for _, o := range r.Outcomes {
		if o.Status == s {
			n++
		}
	}
	return n
}

// Affected returns the number of distinct products inserted or merged.
func (r Report) Affected() int {
	seen := make(map[string]bool)
	for _, o := range r.Outcomes {
		if o.Status != StatusRejected && o.ProductID != "" {
			seen[o.ProductID] = true
		}
	}
	return len(seen)
}

// ReconcileAll reconciles candidates in input order. Each candidate is matched
// against the state left by the previous ones, so repeated names within one
// batch merge into a single product. A failing candidate is rejected and the
// batch continues; already applied items stay applied.
func ReconcileAll(ctx context.Context, candidates []Candidate, existing []product.Product, opts Options, a Applier) Report {
	current := make([]product.Product, len(existing))
	for i := range existing {
		current[i] = existing[i].Clone()
	}

	report := Report{Outcomes: make([]Outcome, 0, len(candidates))}
	for i, c := range candidates {
		out := Outcome{Index: i, Candidate: c}

		if err := ctx.Err(); err != nil {
			out.Status = StatusRejected
			out.Reason = err
			report.Outcomes = append(report.Outcomes, out)
			continue
		}

		in, err := Reconcile(c, current, opts)
		if err != nil {
			out.Status = StatusRejected
			out.Reason = err
			report.Outcomes = append(report.Outcomes, out)
			continue
		}

		switch in.Action {
		case ActionInsert:
			p, err := a.ApplyInsert(ctx, in)
			if err != nil {
				out.Status = StatusRejected
				out.Reason = err
				break
			}
			current = append(current, p)
			out.Status = StatusInserted
			out.ProductID = p.ID

		case ActionMerge:
			out.ProductID = in.ProductID
			out.Duplicate = len(in.Duplicates) > 0
			if !in.Changed {
				out.Status = StatusMerged
				break
			}
			p, err := a.ApplyMerge(ctx, in)
			if err != nil {
				out.Status = StatusRejected
				out.Reason = err
				break
			}
			replace(current, p)
			out.Status = StatusMerged
		}

		report.Outcomes = append(report.Outcomes, out)
	}
	return report
}

func replace(products []product.Product, p product.Product) {
	for i := range products {
		if products[i].ID == p.ID {
			products[i] = p
			return
		}
	}
}

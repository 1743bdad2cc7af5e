package pricing

import "github.com/shopspring/decimal"

// Fold recomputes the unit price from a breakdown. Steps rejected by keep are
// ignored; the BASE step is always kept. An OVERRIDE step replaces the base as
// the starting price, discounts are summed and floored at zero, then
// surcharges are added and the result floored again. INFO steps never
// contribute.
//
// Callers use Fold to toggle individual steps on a computed quote without
// re-running rule resolution.
func Fold(steps []Step, keep func(Step) bool) decimal.Decimal {
	var (
		base       decimal.Decimal
		override   *decimal.Decimal
		discounts  = decimal.Zero
		surcharges = decimal.Zero
	)
	for _, s := range steps {
		if s.Kind != StepBase && keep != nil && !keep(s) {
			continue
		}
		switch s.Kind {
		case StepBase:
			base = s.Value
		case StepOverride:
			v := s.Value
			override = &v
		case StepDiscount:
			discounts = discounts.Add(s.Value)
		case StepSurcharge:
			surcharges = surcharges.Add(s.Value)
		}
	}
	start := base
	if override != nil {
		start = *override
	}
	net := floorZero(start.Add(discounts))
	return floorZero(net.Add(surcharges))
}

// Without returns a predicate that drops the steps contributed by the given
// profile ids.
func Without(profileIDs ...string) func(Step) bool {
	drop := make(map[string]struct{}, len(profileIDs))
	for _, id := range profileIDs {
		drop[id] = struct{}{}
	}
	return func(s Step) bool {
		_, skip := drop[s.ProfileID]
		return !skip || s.ProfileID == ""
	}
}

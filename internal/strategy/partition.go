package strategy

import (
	"github.com/shopspring/decimal"
)

// maxSkewFactor caps the aggressive-mode allocation skew.
const maxSkewFactor = 0.4

// Step is one sell tranche of a split position.
type Step struct {
	Yes decimal.Decimal
	No  decimal.Decimal
}

// SkewFactor derives the aggressive-mode skew from the price gap
// between the two sides: half the relative difference, capped at
// maxSkewFactor. Returns 0 when prices are unusable.
func SkewFactor(priceYes, priceNo float64) float64 {
	max := priceYes
	if priceNo > max {
		max = priceNo
	}
	if max <= 0 {
		return 0
	}

	diff := priceYes - priceNo
	if diff < 0 {
		diff = -diff
	}
	factor := diff / max * 0.5
	if factor > maxSkewFactor {
		factor = maxSkewFactor
	}
	return factor
}

// PartitionSteps splits the YES/NO share totals into sequential sell
// steps. With aggressive enabled the per-step allocation is skewed
// toward the side currently priced higher. The final step absorbs all
// rounding remainder; a side exhausted early merges its leftover into
// the step where it runs out, never leaving a negative allocation.
func PartitionSteps(yesShares, noShares decimal.Decimal, steps int, aggressive bool, priceYes, priceNo float64) []Step {
	if steps < 1 {
		steps = 1
	}
	if steps == 1 {
		return []Step{{Yes: yesShares, No: noShares}}
	}

	count := decimal.NewFromInt(int64(steps))
	perYes := yesShares.Div(count)
	perNo := noShares.Div(count)

	if aggressive {
		factor := decimal.NewFromFloat(SkewFactor(priceYes, priceNo))
		up := decimal.NewFromInt(1).Add(factor)
		down := decimal.NewFromInt(1).Sub(factor)
		if priceYes > priceNo {
			perYes = perYes.Mul(up)
			perNo = perNo.Mul(down)
		} else if priceNo > priceYes {
			perYes = perYes.Mul(down)
			perNo = perNo.Mul(up)
		}
	}

	remYes := yesShares
	remNo := noShares
	out := make([]Step, 0, steps)
	for i := 0; i < steps; i++ {
		if i == steps-1 {
			out = append(out, Step{Yes: remYes, No: remNo})
			break
		}

		stepYes := decimal.Min(perYes, remYes)
		stepNo := decimal.Min(perNo, remNo)
		// A side that cannot fund the next step is drained here
		// instead of leaving a dribble for a later step.
		if remYes.Sub(stepYes).LessThan(perYes) {
			stepYes = remYes
		}
		if remNo.Sub(stepNo).LessThan(perNo) {
			stepNo = remNo
		}

		remYes = remYes.Sub(stepYes)
		remNo = remNo.Sub(stepNo)
		out = append(out, Step{Yes: stepYes, No: stepNo})
	}
	return out
}
